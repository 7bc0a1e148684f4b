package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mholden/brewdeck/internal/domain"
	"github.com/mholden/brewdeck/internal/tui/styles"
)

// maxPreviewItems caps how many paths a cleanup preview lists before
// collapsing the rest into a "... and N more" line.
const maxPreviewItems = 10

// ConfirmModal asks the user to confirm a destructive action. It can
// optionally show a cleanup preview of the paths about to be removed.
type ConfirmModal struct {
	visible bool
	title   string
	message string
	preview *domain.CleanupPreview
}

// NewConfirmModal creates a new confirm modal
func NewConfirmModal() ConfirmModal {
	return ConfirmModal{}
}

// Show displays the modal with a plain yes/no question
func (m *ConfirmModal) Show(title, message string) {
	m.visible = true
	m.title = title
	m.message = message
	m.preview = nil
}

// ShowPreview displays the modal with a cleanup preview
func (m *ConfirmModal) ShowPreview(title string, preview *domain.CleanupPreview) {
	m.visible = true
	m.title = title
	m.message = ""
	m.preview = preview
}

// Hide dismisses the modal
func (m *ConfirmModal) Hide() {
	m.visible = false
	m.preview = nil
}

// IsVisible returns whether the modal is shown
func (m ConfirmModal) IsVisible() bool {
	return m.visible
}

// Update handles input events, returns (modal, confirmed, dismissed)
func (m ConfirmModal) Update(msg tea.Msg) (ConfirmModal, bool, bool) {
	if !m.visible {
		return m, false, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "y", "Y", "enter":
			m.Hide()
			return m, true, true
		case "n", "N", "esc":
			m.Hide()
			return m, false, true
		}
	}
	return m, false, false
}

// View renders the confirm modal
func (m ConfirmModal) View() string {
	if !m.visible {
		return ""
	}

	const modalWidth = 52

	lineStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark)

	titleStyle := lineStyle.
		Foreground(styles.White).
		Bold(true)

	rows := []string{titleStyle.Render(m.title)}

	if m.message != "" {
		rows = append(rows, lineStyle.Foreground(styles.LightGray).Render(m.message))
	}

	if m.preview != nil {
		rows = append(rows, lineStyle.Render(""))
		if len(m.preview.Items) == 0 {
			rows = append(rows, lineStyle.Foreground(styles.DimGray).Render("Nothing to remove"))
		}
		for i, item := range m.preview.Items {
			if i == maxPreviewItems {
				remaining := len(m.preview.Items) - maxPreviewItems
				rows = append(rows, lineStyle.Foreground(styles.DimGray).
					Render(fmt.Sprintf("... and %d more", remaining)))
				break
			}
			line := fmt.Sprintf("%s  %s",
				styles.Truncate(item.Path, modalWidth-12),
				humanSize(item.Size))
			rows = append(rows, lineStyle.Foreground(styles.LightGray).Render(line))
		}
		rows = append(rows, lineStyle.Render(""))
		rows = append(rows, lineStyle.Foreground(styles.Yellow).
			Render(fmt.Sprintf("Total: %s", humanSize(m.preview.TotalSize))))
	}

	rows = append(rows, lineStyle.Render(""))
	rows = append(rows, lineStyle.Foreground(styles.DimGray).Render("y confirm · n cancel"))

	content := lipgloss.JoinVertical(lipgloss.Left, rows...)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.BrewAmber).
		Background(styles.SlateDark).
		Padding(1, 2).
		Render(content)
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
