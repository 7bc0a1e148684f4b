package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mholden/brewdeck/internal/tui/styles"
)

// PasswordModal collects an administrator password for a privileged
// operation. The entered secret is handed to the caller on submit and
// cleared from the input immediately after.
type PasswordModal struct {
	visible    bool
	title      string
	message    string
	promptID   string
	rejections int
	input      textinput.Model
}

// NewPasswordModal creates a new password modal
func NewPasswordModal() PasswordModal {
	ti := textinput.New()
	ti.Placeholder = "password"
	ti.CharLimit = 128
	ti.Width = 30
	ti.Prompt = ""
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return PasswordModal{
		input: ti,
	}
}

// Show displays the modal for the given prompt. rejections is the
// number of times a password has already been refused for this prompt.
func (m *PasswordModal) Show(promptID, title, message string, rejections int) {
	m.visible = true
	m.promptID = promptID
	m.title = title
	m.message = message
	m.rejections = rejections
	m.input.SetValue("")
	m.input.Focus()
}

// Hide dismisses the modal and wipes the input
func (m *PasswordModal) Hide() {
	m.visible = false
	m.input.SetValue("")
	m.input.Blur()
}

// IsVisible returns whether the modal is shown
func (m PasswordModal) IsVisible() bool {
	return m.visible
}

// PromptID returns the prompt this modal is answering
func (m PasswordModal) PromptID() string {
	return m.promptID
}

// Update handles input events, returns (modal, cmd, secret, submitted)
func (m PasswordModal) Update(msg tea.Msg) (PasswordModal, tea.Cmd, string, bool) {
	if !m.visible {
		return m, nil, "", false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			secret := m.input.Value()
			m.Hide()
			return m, nil, secret, true
		case "esc":
			m.Hide()
			return m, nil, "", false
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd, "", false
}

// View renders the password modal
func (m PasswordModal) View() string {
	if !m.visible {
		return ""
	}

	const modalWidth = 42

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.White).
		Bold(true).
		Width(modalWidth).
		Background(styles.SlateDark)

	messageStyle := lipgloss.NewStyle().
		Foreground(styles.LightGray).
		Width(modalWidth).
		Background(styles.SlateDark)

	inputStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark)

	spacer := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark).
		Render("")

	rows := []string{
		titleStyle.Render(m.title),
		messageStyle.Render(m.message),
	}
	if m.rejections > 0 {
		rejectStyle := lipgloss.NewStyle().
			Foreground(styles.Red).
			Width(modalWidth).
			Background(styles.SlateDark)
		rows = append(rows, rejectStyle.Render(fmt.Sprintf("Rejected %d time(s)", m.rejections)))
	}
	rows = append(rows, spacer, inputStyle.Render(m.input.View()))

	hintStyle := lipgloss.NewStyle().
		Foreground(styles.DimGray).
		Width(modalWidth).
		Background(styles.SlateDark)
	rows = append(rows, spacer, hintStyle.Render("enter submit · esc cancel"))

	content := lipgloss.JoinVertical(lipgloss.Left, rows...)

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.BrewAmber).
		Background(styles.SlateDark).
		Padding(1, 2).
		Render(content)

	return modal
}
