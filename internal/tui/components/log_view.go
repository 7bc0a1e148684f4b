package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mholden/brewdeck/internal/task"
	"github.com/mholden/brewdeck/internal/tui/styles"
)

// LogView shows the rolling event log in a scrollable viewport.
type LogView struct {
	vp      viewport.Model
	focused bool
}

// NewLogView creates a new log view
func NewLogView() *LogView {
	return &LogView{
		vp: viewport.New(0, 0),
	}
}

// SetSize sets the component dimensions
func (v *LogView) SetSize(width, height int) {
	v.vp.Width = width - BorderWidth
	v.vp.Height = height - BorderHeight - headerLines
	if v.vp.Height < 1 {
		v.vp.Height = 1
	}
}

// SetFocused sets whether the view has keyboard focus
func (v *LogView) SetFocused(focused bool) {
	v.focused = focused
}

// SetEvents replaces the viewport content with the given events,
// oldest first. Follows the tail unless the user has scrolled up.
func (v *LogView) SetEvents(events []task.StatusEvent) {
	atBottom := v.vp.AtBottom()

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		ts := styles.DimStyle.Render(ev.At.Format("15:04:05"))
		lines = append(lines, fmt.Sprintf("%s  %s", ts, ev.Line))
	}
	v.vp.SetContent(strings.Join(lines, "\n"))

	if atBottom {
		v.vp.GotoBottom()
	}
}

// Update routes scroll keys to the viewport
func (v *LogView) Update(msg tea.Msg) tea.Cmd {
	if !v.focused {
		return nil
	}
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	return cmd
}

// View renders the log view
func (v *LogView) View() string {
	header := styles.TitleStyle.Render(" Activity Log")
	divider := styles.DimStyle.Render(" " + dashes(v.vp.Width-2))

	border := styles.InactiveBorder
	if v.focused {
		border = styles.ActiveBorder
	}
	content := header + "\n" + divider + "\n" + v.vp.View()
	return border.Width(v.vp.Width).Render(content)
}
