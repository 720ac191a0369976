package inbox

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bidboard/internal/keys"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/theme"
)

// ClickMsg is sent when the user opens a notification.
type ClickMsg struct {
	ID int64
}

// ClearAllMsg is sent when the user clears the inbox.
type ClearAllMsg struct{}

// CloseMsg is sent when the user closes the panel.
type CloseMsg struct{}

// Model is the notification bell panel.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	unread int
	width  int
	height int
}

// New creates an empty notification panel.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetNotifications replaces the displayed inbox, keeping the cursor.
func (m *Model) SetNotifications(notifications []model.Notification) tea.Cmd {
	items := make([]list.Item, len(notifications))
	unread := 0
	for i, n := range notifications {
		items[i] = NotificationItem{Notification: n}
		if !n.IsRead {
			unread++
		}
	}
	m.unread = unread
	return m.list.SetItems(items)
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(NotificationItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return ClickMsg{ID: item.Notification.ID}
			}

		case key.Matches(msg, m.keys.ClearAll):
			return m, func() tea.Msg { return ClearAllMsg{} }

		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Bell):
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notifications.")
	}

	m.list.Title = "Notifications"
	if m.unread > 0 {
		m.list.Title = fmt.Sprintf("Notifications (%d unread)", m.unread)
	}
	return m.list.View()
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
