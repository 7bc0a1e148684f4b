package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mholden/brewdeck/internal/domain"
	"github.com/mholden/brewdeck/internal/tui/styles"
)

// Spinner frames for loading animation
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Layout constants
const (
	// Border adds 1 char on each side (left+right for width, top+bottom for height)
	BorderWidth  = 2
	BorderHeight = 2

	// Header + divider
	headerLines = 2
)

// PackageList is a scrollable list of packages with a cursor and an
// optional set of rows marked busy (an operation for that package is
// in flight).
type PackageList struct {
	packages []domain.Package

	cursor     int
	offset     int
	maxVisible int

	width   int
	height  int
	focused bool

	title string

	loading      bool
	spinnerFrame int

	busy   map[domain.PackageRef]bool
	marked map[domain.PackageRef]bool
}

// NewPackageList creates a new package list with the given title
func NewPackageList(title string) *PackageList {
	return &PackageList{
		title:  title,
		busy:   make(map[domain.PackageRef]bool),
		marked: make(map[domain.PackageRef]bool),
	}
}

// SetPackages replaces the list contents, clamping the cursor and
// dropping marks on rows that no longer exist.
func (l *PackageList) SetPackages(pkgs []domain.Package) {
	l.packages = pkgs
	if l.cursor >= len(pkgs) {
		l.cursor = len(pkgs) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	if len(l.marked) > 0 {
		present := make(map[domain.PackageRef]bool, len(pkgs))
		for _, pkg := range pkgs {
			present[pkg.Ref] = true
		}
		for ref := range l.marked {
			if !present[ref] {
				delete(l.marked, ref)
			}
		}
	}
	l.clampOffset()
}

// Packages returns the current list contents
func (l *PackageList) Packages() []domain.Package {
	return l.packages
}

// Selected returns the package under the cursor, or false when empty
func (l *PackageList) Selected() (domain.Package, bool) {
	if l.cursor < 0 || l.cursor >= len(l.packages) {
		return domain.Package{}, false
	}
	return l.packages[l.cursor], true
}

// SetSize sets the component dimensions
func (l *PackageList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.maxVisible = height - BorderHeight - headerLines
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
	l.clampOffset()
}

// SetFocused sets whether the list has keyboard focus
func (l *PackageList) SetFocused(focused bool) {
	l.focused = focused
}

// SetLoading toggles the loading spinner
func (l *PackageList) SetLoading(loading bool) {
	l.loading = loading
}

// Loading reports whether the list is waiting on a refresh
func (l *PackageList) Loading() bool {
	return l.loading
}

// SetBusy marks or clears the in-flight indicator for a package
func (l *PackageList) SetBusy(ref domain.PackageRef, busy bool) {
	if busy {
		l.busy[ref] = true
	} else {
		delete(l.busy, ref)
	}
}

// Tick advances the spinner animation
func (l *PackageList) Tick() {
	l.spinnerFrame = (l.spinnerFrame + 1) % len(spinnerFrames)
}

// MoveUp moves the cursor up one row
func (l *PackageList) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
	l.clampOffset()
}

// MoveDown moves the cursor down one row
func (l *PackageList) MoveDown() {
	if l.cursor < len(l.packages)-1 {
		l.cursor++
	}
	l.clampOffset()
}

// PageUp moves the cursor up one page
func (l *PackageList) PageUp() {
	l.cursor -= l.maxVisible
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.clampOffset()
}

// PageDown moves the cursor down one page
func (l *PackageList) PageDown() {
	l.cursor += l.maxVisible
	if l.cursor > len(l.packages)-1 {
		l.cursor = len(l.packages) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.clampOffset()
}

// Home moves the cursor to the first row
func (l *PackageList) Home() {
	l.cursor = 0
	l.offset = 0
}

// End moves the cursor to the last row
func (l *PackageList) End() {
	l.cursor = len(l.packages) - 1
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.clampOffset()
}

// ToggleMark flips the multi-select mark on the row under the cursor
// and advances the cursor so repeated presses sweep down the list.
func (l *PackageList) ToggleMark() {
	pkg, ok := l.Selected()
	if !ok {
		return
	}
	if l.marked[pkg.Ref] {
		delete(l.marked, pkg.Ref)
	} else {
		l.marked[pkg.Ref] = true
	}
	l.MoveDown()
}

// Marked returns the marked packages in list order
func (l *PackageList) Marked() []domain.Package {
	if len(l.marked) == 0 {
		return nil
	}
	out := make([]domain.Package, 0, len(l.marked))
	for _, pkg := range l.packages {
		if l.marked[pkg.Ref] {
			out = append(out, pkg)
		}
	}
	return out
}

// ClearMarks removes all multi-select marks
func (l *PackageList) ClearMarks() {
	l.marked = make(map[domain.PackageRef]bool)
}

// Visible returns the index range of rows currently on screen
func (l *PackageList) Visible() (start, end int) {
	start = l.offset
	end = l.offset + l.maxVisible
	if end > len(l.packages) {
		end = len(l.packages)
	}
	return start, end
}

func (l *PackageList) clampOffset() {
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.maxVisible > 0 && l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// HandleKeyMsg processes a navigation key, returns whether it was handled
func (l *PackageList) HandleKeyMsg(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up", "k":
		l.MoveUp()
	case "down", "j":
		l.MoveDown()
	case "pgup", "ctrl+u":
		l.PageUp()
	case "pgdown", "ctrl+d":
		l.PageDown()
	case "home", "g":
		l.Home()
	case "end", "G":
		l.End()
	case " ":
		l.ToggleMark()
	default:
		return false
	}
	return true
}

// View renders the list
func (l *PackageList) View() string {
	innerWidth := l.width - BorderWidth
	if innerWidth < 10 {
		innerWidth = 10
	}

	header := styles.TitleStyle.Render(fmt.Sprintf(" %s (%d)", l.title, len(l.packages)))
	if n := len(l.marked); n > 0 {
		header += styles.SpinnerStyle.Render(fmt.Sprintf(" %d marked", n))
	}
	if l.loading {
		header += " " + styles.SpinnerStyle.Render(spinnerFrames[l.spinnerFrame])
	}

	rows := []string{header, styles.DimStyle.Render(" " + dashes(innerWidth-2))}

	if len(l.packages) == 0 && !l.loading {
		rows = append(rows, styles.DimStyle.Render("  nothing here"))
	}

	start, end := l.Visible()
	for i := start; i < end; i++ {
		rows = append(rows, l.renderRow(i, innerWidth))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, rows...)

	border := styles.InactiveBorder
	if l.focused {
		border = styles.ActiveBorder
	}
	return border.Width(innerWidth).Height(l.height - BorderHeight).Render(content)
}

func (l *PackageList) renderRow(i, width int) string {
	pkg := l.packages[i]
	selected := l.focused && i == l.cursor

	status := " "
	var statusColor *lipgloss.Color
	switch {
	case l.busy[pkg.Ref]:
		status = spinnerFrames[l.spinnerFrame]
		statusColor = &styles.BrewAmber
	case pkg.Pinned:
		status = styles.PinnedChar
		statusColor = &styles.Blue
	case pkg.Outdated:
		status = styles.OutdatedChar
		statusColor = &styles.Yellow
	}

	kind := styles.FormulaChar
	if pkg.Ref.Kind == domain.KindCask {
		kind = styles.CaskChar
	}

	mark := " "
	var markColor *lipgloss.Color
	if l.marked[pkg.Ref] {
		mark = "●"
		markColor = &styles.BrewAmber
	}

	version := pkg.Version
	if pkg.Outdated && pkg.AvailableVersion != "" {
		version = fmt.Sprintf("%s → %s", pkg.Version, pkg.AvailableVersion)
	}

	nameWidth := width/2 - 6
	if nameWidth < 8 {
		nameWidth = 8
	}

	parts := []styles.RowPart{
		{Text: mark, Foreground: markColor},
		{Text: status + " ", Foreground: statusColor},
		{Text: kind + " ", Foreground: &styles.DimGray},
		{Text: styles.Pad(styles.Truncate(pkg.Ref.Name, nameWidth), nameWidth+1)},
		{Text: styles.Truncate(version, width-nameWidth-9), Foreground: &styles.DimGray},
	}
	return styles.RenderListRow(parts, selected, width)
}

func dashes(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
