package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bidboard/internal/keys"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	role   model.Role
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// SetRole selects the role-specific notes shown under the shortcuts.
func (m *Model) SetRole(role model.Role) {
	m.role = role
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")
	helpText := m.help.View(m.keys)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, "", m.notes())

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func (m Model) notes() string {
	var text string
	switch m.role {
	case model.RoleContractor:
		text = "Badges: Leads counts missions you have not opened, My Bids counts " +
			"unseen bid updates, Reviews counts unread reviews."
	case model.RoleHomeowner:
		text = "Badges: Dashboard counts unread bids, Pending Reviews counts " +
			"accepted jobs you have not reviewed yet."
	default:
		return ""
	}
	return theme.HelpStyle.Width(m.width - 8).Render(
		text + " Opening the bell marks everything as seen.")
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
}
