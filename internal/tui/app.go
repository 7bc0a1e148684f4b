package tui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mholden/brewdeck/internal/adapter"
	"github.com/mholden/brewdeck/internal/domain"
	"github.com/mholden/brewdeck/internal/service"
	"github.com/mholden/brewdeck/internal/task"
	"github.com/mholden/brewdeck/internal/tui/components"
)

// Tab identifies one of the top-level views
type Tab int

const (
	TabInstalled Tab = iota
	TabSearch
	TabLog
)

// Chrome height: tab bar + status bar + help line
const chromeHeight = 3

// Model is the main Bubble Tea model for the application
type Model struct {
	keys   KeyMap
	width  int
	height int

	activeTab Tab

	installedList *components.PackageList
	searchList    *components.PackageList
	logView       *components.LogView
	passwordModal components.PasswordModal
	confirmModal  components.ConfirmModal

	// Installed-tab filter
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string

	// Search-tab query input
	searchInput textinput.Model

	catalog *service.Catalog
	exec    *task.Executor
	batch   *task.BatchProcessor
	mgr     *task.Manager
	bus     *task.Bus
	cfg     *adapter.Config
	logger  *slog.Logger

	// pendingCleanup is the cleanup kind awaiting confirmation in the
	// preview modal; zero value means none.
	pendingCleanup domain.OperationKind
	cleanupPending bool

	// refreshing counts outstanding list/outdated refresh operations
	refreshing int

	// searching counts outstanding search operations (one per kind)
	searching int

	helpVisible bool
}

// NewModel creates the application model with all backend collaborators
func NewModel(
	catalog *service.Catalog,
	exec *task.Executor,
	batch *task.BatchProcessor,
	mgr *task.Manager,
	bus *task.Bus,
	cfg *adapter.Config,
	logger *slog.Logger,
) Model {
	fi := textinput.New()
	fi.Placeholder = "type to filter..."
	fi.Prompt = "/ "
	fi.CharLimit = 60

	si := textinput.New()
	si.Placeholder = "search packages..."
	si.Prompt = "> "
	si.CharLimit = 100

	m := Model{
		keys:          DefaultKeyMap(),
		installedList: components.NewPackageList("Installed"),
		searchList:    components.NewPackageList("Results"),
		logView:       components.NewLogView(),
		passwordModal: components.NewPasswordModal(),
		confirmModal:  components.NewConfirmModal(),
		filterInput:   fi,
		searchInput:   si,
		catalog:       catalog,
		exec:          exec,
		batch:         batch,
		mgr:           mgr,
		bus:           bus,
		cfg:           cfg,
		logger:        logger,
	}
	m.installedList.SetFocused(true)

	// Keep the catalog in step with batch items as they succeed, ahead
	// of the next full refresh.
	batch.OnItemSuccess = func(ref domain.PackageRef, kind domain.OperationKind) {
		switch kind {
		case domain.OpUpdate:
			catalog.MarkUpdated(ref)
		case domain.OpInstall:
			catalog.MarkInstalled(ref)
		case domain.OpUninstall:
			catalog.MarkUninstalled(ref)
		}
	}

	// Kick off the initial refresh before the program starts so the
	// first poll tick already has work to drain.
	m.startRefresh()
	return m
}

// Init starts the poll loop
func (m Model) Init() tea.Cmd {
	return pollTickCmd()
}

// startSearch queries formulae and casks as two operations; the catalog
// merges both result sets as they land.
func (m *Model) startSearch(query string) {
	m.searchList.SetLoading(true)
	for _, kind := range []domain.PackageKind{domain.KindFormula, domain.KindCask} {
		m.exec.Start(task.Operation{
			Kind:  domain.OpSearch,
			Ref:   domain.PackageRef{Kind: kind},
			Query: query,
		})
		m.searching++
	}
}

// startRefresh submits the four listing operations that rebuild the
// installed and outdated sets.
func (m *Model) startRefresh() {
	if m.refreshing > 0 {
		return
	}
	for _, kind := range []domain.PackageKind{domain.KindFormula, domain.KindCask} {
		m.exec.Start(task.Operation{Kind: domain.OpList, Ref: domain.PackageRef{Kind: kind}})
		m.exec.Start(task.Operation{Kind: domain.OpListOutdated, Ref: domain.PackageRef{Kind: kind}})
		m.refreshing += 2
	}
	m.installedList.SetLoading(true)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case pollTickMsg:
		m.handlePoll()
		return m, pollTickCmd()

	case searchDebounceMsg:
		// Only the latest debounce timer wins
		if msg.query == m.searchInput.Value() {
			if msg.query == "" {
				m.catalog.ClearSearch()
			} else {
				m.startSearch(msg.query)
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// handlePoll runs once per tick: drain finished operations, surface any
// credential prompt, drive lazy info loads, and refresh derived views.
func (m *Model) handlePoll() {
	m.installedList.Tick()
	m.searchList.Tick()

	for _, res := range m.exec.Poll() {
		if m.batch.HandleResult(res) {
			continue
		}
		m.applyResult(res)
	}

	if prompt := m.exec.Prompt(); prompt != nil {
		if !m.passwordModal.IsVisible() || m.passwordModal.PromptID() != prompt.ID {
			m.passwordModal.Show(prompt.ID,
				"Administrator Password", prompt.Message, prompt.Rejections)
		}
	}

	m.queueVisibleInfoLoads()
	for _, ref := range m.catalog.NextInfoLoads() {
		m.exec.Start(task.Operation{Kind: domain.OpGetInfo, Ref: ref, HasRef: true})
	}

	m.refreshLists()
}

// applyResult folds one finished standalone operation into UI state
func (m *Model) applyResult(res task.Result) {
	op := res.Op
	switch op.Kind {
	case domain.OpList:
		m.refreshDone()
		if res.Outcome.OK() {
			if pkgs, ok := res.Outcome.Payload.([]domain.Package); ok {
				m.catalog.ReplaceInstalled(op.Ref.Kind, pkgs)
			}
		}

	case domain.OpListOutdated:
		m.refreshDone()
		if res.Outcome.OK() {
			if pkgs, ok := res.Outcome.Payload.([]domain.Package); ok {
				m.catalog.ReplaceOutdated(op.Ref.Kind, pkgs)
			}
		}

	case domain.OpSearch:
		if m.searching > 0 {
			m.searching--
		}
		if m.searching == 0 {
			m.searchList.SetLoading(false)
		}
		if res.Outcome.OK() {
			if pkgs, ok := res.Outcome.Payload.([]domain.Package); ok {
				m.catalog.ReplaceSearch(op.Ref.Kind, pkgs)
			}
		}

	case domain.OpGetInfo:
		m.catalog.InfoLoadDone(op.Ref)
		if res.Outcome.OK() {
			if pkg, ok := res.Outcome.Payload.(domain.Package); ok {
				m.catalog.MergeInfo(pkg)
			}
		} else {
			// Mark the load failed so the row stops being re-queued.
			m.catalog.MergeInfo(domain.Package{Ref: op.Ref, InfoLoadFailed: true})
		}

	case domain.OpInstall:
		m.installedList.SetBusy(op.Ref, false)
		m.searchList.SetBusy(op.Ref, false)
		if res.Outcome.OK() {
			m.catalog.MarkInstalled(op.Ref)
		}

	case domain.OpUninstall:
		m.installedList.SetBusy(op.Ref, false)
		if res.Outcome.OK() {
			m.catalog.MarkUninstalled(op.Ref)
		}

	case domain.OpUpdate:
		m.installedList.SetBusy(op.Ref, false)
		if res.Outcome.OK() {
			m.catalog.MarkUpdated(op.Ref)
		}

	case domain.OpUpdateAll:
		if res.Outcome.OK() {
			m.startRefresh()
		}

	case domain.OpPin:
		m.installedList.SetBusy(op.Ref, false)
		if res.Outcome.OK() {
			m.catalog.SetPinned(op.Ref, true)
		}

	case domain.OpUnpin:
		m.installedList.SetBusy(op.Ref, false)
		if res.Outcome.OK() {
			m.catalog.SetPinned(op.Ref, false)
		}

	case domain.OpCleanCache, domain.OpCleanupOldVersions:
		if op.DryRun && res.Outcome.OK() {
			if preview, ok := res.Outcome.Payload.(domain.CleanupPreview); ok {
				title := "Clear Download Cache?"
				if op.Kind == domain.OpCleanupOldVersions {
					title = "Remove Old Versions?"
				}
				m.pendingCleanup = op.Kind
				m.cleanupPending = true
				m.confirmModal.ShowPreview(title, &preview)
			}
		}
	}
}

func (m *Model) refreshDone() {
	if m.refreshing > 0 {
		m.refreshing--
	}
	if m.refreshing == 0 {
		m.installedList.SetLoading(false)
	}
}

// queueVisibleInfoLoads lazily requests package details for the rows
// currently on screen, on both the installed and search tabs.
func (m *Model) queueVisibleInfoLoads() {
	var list *components.PackageList
	switch m.activeTab {
	case TabInstalled:
		list = m.installedList
	case TabSearch:
		list = m.searchList
	default:
		return
	}
	pkgs := list.Packages()
	start, end := list.Visible()
	for i := start; i < end && i < len(pkgs); i++ {
		pkg := pkgs[i]
		if pkg.Description == "" && !pkg.InfoLoadFailed {
			m.catalog.QueueInfoLoad(pkg.Ref)
		}
	}
}

// refreshLists rebuilds the component contents from the catalog
func (m *Model) refreshLists() {
	installed := m.catalog.Installed()
	if m.filterQuery != "" {
		installed = service.Filter(installed, m.filterQuery)
	}
	m.installedList.SetPackages(installed)
	m.searchList.SetPackages(m.catalog.Search())
	m.logView.SetEvents(m.bus.Snapshot(m.cfg.UI.LogLines))
}

func (m *Model) updateLayout() {
	contentHeight := m.height - chromeHeight
	if contentHeight < 4 {
		contentHeight = 4
	}
	m.installedList.SetSize(m.width, contentHeight)
	m.searchList.SetSize(m.width, contentHeight-1) // search input takes a line
	m.logView.SetSize(m.width, contentHeight)
}

// handleKeyMsg routes keys by priority: modals first, then text inputs,
// then the active tab, then global bindings.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Password modal captures everything while visible
	if m.passwordModal.IsVisible() {
		promptID := m.passwordModal.PromptID()
		var cmd tea.Cmd
		var secret string
		var submitted bool
		wasVisible := m.passwordModal.IsVisible()
		m.passwordModal, cmd, secret, submitted = m.passwordModal.Update(msg)
		if submitted {
			if err := m.exec.SupplyCredential(promptID, secret); err != nil {
				m.logger.Warn("stale credential prompt", "error", err)
			}
		} else if wasVisible && !m.passwordModal.IsVisible() {
			// Dismissed with esc
			if err := m.exec.CancelPrompt(promptID); err != nil {
				m.logger.Warn("stale credential prompt", "error", err)
			}
		}
		return m, cmd
	}

	// Confirm modal likewise
	if m.confirmModal.IsVisible() {
		var confirmed, dismissed bool
		m.confirmModal, confirmed, dismissed = m.confirmModal.Update(msg)
		if dismissed && m.cleanupPending {
			if confirmed {
				m.exec.Start(task.Operation{Kind: m.pendingCleanup})
			}
			m.cleanupPending = false
		}
		return m, nil
	}

	if m.helpVisible {
		m.helpVisible = false
		return m, nil
	}

	// Installed-tab filter input
	if m.filterActive {
		switch msg.String() {
		case "enter":
			m.filterActive = false
			m.filterInput.Blur()
			return m, nil
		case "esc":
			m.filterActive = false
			m.filterQuery = ""
			m.filterInput.SetValue("")
			m.filterInput.Blur()
			m.refreshLists()
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.filterQuery = m.filterInput.Value()
		m.refreshLists()
		return m, cmd
	}

	// Search input is live whenever the search tab is shown
	if m.activeTab == TabSearch && m.searchInput.Focused() {
		switch msg.String() {
		case "esc":
			m.searchInput.Blur()
			m.searchList.SetFocused(true)
			return m, nil
		case "enter":
			m.searchInput.Blur()
			m.searchList.SetFocused(true)
			if query := m.searchInput.Value(); query != "" {
				m.startSearch(query)
			} else {
				m.catalog.ClearSearch()
			}
			return m, nil
		case "tab", "shift+tab":
			// fall through to tab switching below
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, tea.Batch(cmd, searchDebounceCmd(m.searchInput.Value()))
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.helpVisible = true
		return m, nil

	case key.Matches(msg, m.keys.NextTab):
		m.setTab((m.activeTab + 1) % 3)
		return m, nil

	case key.Matches(msg, m.keys.PrevTab):
		m.setTab((m.activeTab + 2) % 3)
		return m, nil

	case key.Matches(msg, m.keys.Installed):
		m.setTab(TabInstalled)
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.setTab(TabSearch)
		return m, nil

	case key.Matches(msg, m.keys.Log):
		m.setTab(TabLog)
		return m, nil
	}

	switch m.activeTab {
	case TabInstalled:
		return m.handleInstalledKeys(msg)
	case TabSearch:
		return m.handleSearchKeys(msg)
	case TabLog:
		return m, m.logView.Update(msg)
	}
	return m, nil
}

func (m *Model) setTab(tab Tab) {
	m.activeTab = tab
	m.installedList.SetFocused(tab == TabInstalled)
	m.searchList.SetFocused(tab == TabSearch && !m.searchInput.Focused())
	m.logView.SetFocused(tab == TabLog)
	if tab == TabSearch && len(m.searchList.Packages()) == 0 {
		m.searchInput.Focus()
		m.searchList.SetFocused(false)
	}
}

func (m Model) handleInstalledKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.installedList.HandleKeyMsg(msg) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Filter):
		m.filterActive = true
		m.filterInput.Focus()
		return m, nil

	case key.Matches(msg, m.keys.ClearFilter):
		if m.filterQuery != "" {
			m.filterQuery = ""
			m.filterInput.SetValue("")
			m.refreshLists()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.startRefresh()
		return m, nil

	case key.Matches(msg, m.keys.Uninstall):
		if marked := m.installedList.Marked(); len(marked) > 0 {
			m.startBatch(refsOf(marked), domain.OpUninstall)
			m.installedList.ClearMarks()
			return m, nil
		}
		if pkg, ok := m.installedList.Selected(); ok {
			m.installedList.SetBusy(pkg.Ref, true)
			m.exec.Start(task.Operation{Kind: domain.OpUninstall, Ref: pkg.Ref, HasRef: true})
		}
		return m, nil

	case key.Matches(msg, m.keys.Update):
		if marked := m.installedList.Marked(); len(marked) > 0 {
			var refs []domain.PackageRef
			for _, pkg := range marked {
				if pkg.Outdated {
					refs = append(refs, pkg.Ref)
				}
			}
			m.startBatch(refs, domain.OpUpdate)
			m.installedList.ClearMarks()
			return m, nil
		}
		if pkg, ok := m.installedList.Selected(); ok && pkg.Outdated {
			m.installedList.SetBusy(pkg.Ref, true)
			m.exec.Start(task.Operation{Kind: domain.OpUpdate, Ref: pkg.Ref, HasRef: true})
		}
		return m, nil

	case key.Matches(msg, m.keys.UpdateAll):
		// One brew upgrade invocation; brew skips pinned formulae itself.
		// Marked rows + u cover per-item runs with batch progress.
		if m.catalog.OutdatedCount() > 0 {
			m.exec.Start(task.Operation{Kind: domain.OpUpdateAll})
		}
		return m, nil

	case key.Matches(msg, m.keys.Pin):
		if pkg, ok := m.installedList.Selected(); ok && pkg.Ref.Kind == domain.KindFormula {
			kind := domain.OpPin
			if pkg.Pinned {
				kind = domain.OpUnpin
			}
			m.installedList.SetBusy(pkg.Ref, true)
			m.exec.Start(task.Operation{Kind: kind, Ref: pkg.Ref, HasRef: true})
		}
		return m, nil

	case key.Matches(msg, m.keys.Cleanup):
		m.exec.Start(task.Operation{Kind: domain.OpCleanupOldVersions, DryRun: true})
		return m, nil

	case key.Matches(msg, m.keys.CleanCache):
		m.exec.Start(task.Operation{Kind: domain.OpCleanCache, DryRun: true})
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.batch.Active() {
			m.batch.Cancel()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchList.HandleKeyMsg(msg) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Filter):
		m.searchInput.Focus()
		m.searchList.SetFocused(false)
		return m, nil

	case key.Matches(msg, m.keys.Install):
		if marked := m.searchList.Marked(); len(marked) > 0 {
			var refs []domain.PackageRef
			for _, pkg := range marked {
				if !pkg.Installed {
					refs = append(refs, pkg.Ref)
				}
			}
			m.startBatch(refs, domain.OpInstall)
			m.searchList.ClearMarks()
			return m, nil
		}
		if pkg, ok := m.searchList.Selected(); ok && !pkg.Installed {
			m.searchList.SetBusy(pkg.Ref, true)
			m.exec.Start(task.Operation{Kind: domain.OpInstall, Ref: pkg.Ref, HasRef: true})
		}
		return m, nil
	}
	return m, nil
}

// startBatch launches a sequential multi-package run, reporting on the
// bus when one is already active.
func (m *Model) startBatch(refs []domain.PackageRef, kind domain.OperationKind) {
	if err := m.batch.Start(refs, kind); err != nil {
		m.bus.Publish("A batch is already running")
	}
}

func refsOf(pkgs []domain.Package) []domain.PackageRef {
	refs := make([]domain.PackageRef, 0, len(pkgs))
	for _, pkg := range pkgs {
		refs = append(refs, pkg.Ref)
	}
	return refs
}
