package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mholden/brewdeck/internal/tui/styles"
)

// View renders the full screen
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	sections := []string{
		m.renderTabBar(),
		m.renderContent(),
		m.renderStatusBar(),
		m.renderHelpLine(),
	}
	screen := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.passwordModal.IsVisible() {
		return m.overlay(m.passwordModal.View())
	}
	if m.confirmModal.IsVisible() {
		return m.overlay(m.confirmModal.View())
	}
	if m.helpVisible {
		return m.overlay(m.renderHelp())
	}
	return screen
}

func (m Model) overlay(modal string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) renderTabBar() string {
	outdated := m.catalog.OutdatedCount()
	installedLabel := "1 Installed"
	if outdated > 0 {
		installedLabel = fmt.Sprintf("1 Installed (%d↑)", outdated)
	}
	labels := []string{installedLabel, "2 Search", "3 Log"}

	var tabs []string
	for i, label := range labels {
		style := styles.InactiveTabStyle
		if Tab(i) == m.activeTab {
			style = styles.ActiveTabStyle
		}
		tabs = append(tabs, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderContent() string {
	switch m.activeTab {
	case TabInstalled:
		if m.filterActive || m.filterQuery != "" {
			return lipgloss.JoinVertical(lipgloss.Left,
				m.installedList.View(),
				" "+m.filterInput.View())
		}
		return m.installedList.View()

	case TabSearch:
		return lipgloss.JoinVertical(lipgloss.Left,
			" "+m.searchInput.View(),
			m.searchList.View())

	case TabLog:
		return m.logView.View()
	}
	return ""
}

func (m Model) renderStatusBar() string {
	var parts []string

	if progress, ok := m.batch.Progress(); ok && !progress.Done {
		parts = append(parts, styles.StatusBusyStyle.Render(
			fmt.Sprintf("[%d/%d] %s", progress.Completed+1, progress.Total, progress.Current)))
	} else if active := m.mgr.Active(); active > 0 {
		parts = append(parts, styles.StatusBusyStyle.Render(fmt.Sprintf("%d running", active)))
	}

	if queued := m.mgr.QueuedPrivileged(); queued > 0 {
		parts = append(parts, styles.DimStyle.Render(fmt.Sprintf("%d queued", queued)))
	}

	if current := m.bus.Current(); current != "" {
		parts = append(parts, styles.StatusBarStyle.Render(styles.Truncate(current, m.width-20)))
	}

	line := strings.Join(parts, "  ")
	return lipgloss.NewStyle().Width(m.width).Render(" " + line)
}

func (m Model) renderHelpLine() string {
	var pairs [][2]string
	switch m.activeTab {
	case TabInstalled:
		pairs = [][2]string{
			{"space", "mark"}, {"u", "update"}, {"U", "update all"},
			{"d", "uninstall"}, {"p", "pin"}, {"c", "cleanup"},
			{"/", "filter"}, {"?", "help"},
		}
	case TabSearch:
		pairs = [][2]string{
			{"space", "mark"}, {"i", "install"}, {"/", "search"}, {"?", "help"},
		}
	case TabLog:
		pairs = [][2]string{
			{"↑/↓", "scroll"}, {"?", "help"},
		}
	}

	var parts []string
	for _, p := range pairs {
		parts = append(parts,
			styles.HelpKeyStyle.Render(p[0])+" "+styles.HelpDescStyle.Render(p[1]))
	}
	parts = append(parts, styles.HelpKeyStyle.Render("q")+" "+styles.HelpDescStyle.Render("quit"))
	return " " + strings.Join(parts, "  ")
}

func (m Model) renderHelp() string {
	rows := [][2]string{
		{"↑/k ↓/j", "move"},
		{"pgup/pgdn", "page"},
		{"g/G", "top/bottom"},
		{"tab", "next tab"},
		{"1/2/3", "installed / search / log"},
		{"/", "filter or search"},
		{"space", "mark for multi-select"},
		{"i", "install selected/marked"},
		{"d", "uninstall selected/marked"},
		{"u", "update selected/marked"},
		{"U", "update all outdated"},
		{"p", "pin/unpin formula"},
		{"c", "remove old versions"},
		{"C", "clear download cache"},
		{"r", "refresh package lists"},
		{"ctrl+x", "cancel running batch"},
		{"q", "quit"},
	}

	var lines []string
	lines = append(lines, styles.ModalTitleStyle.Render("Keyboard Shortcuts"))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s  %s",
			styles.HelpKeyStyle.Render(styles.Pad(row[0], 10)),
			styles.HelpDescStyle.Render(row[1])))
	}
	lines = append(lines, "")
	lines = append(lines, styles.DimStyle.Render("press any key to close"))

	return styles.ModalStyle.Render(strings.Join(lines, "\n"))
}
