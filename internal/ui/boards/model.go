package boards

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bidboard/internal/keys"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/theme"
)

// OpenMissionMsg is sent when the user opens a lead.
type OpenMissionMsg struct {
	MissionID int64
}

// OpenBidMsg is sent when the user opens a bid.
type OpenBidMsg struct {
	BidID int64
}

// Model is a list of leads or bids with an optional error banner. Load
// errors are shown here and never affect the badges.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	empty  string
	err    error
	width  int
	height int
}

// New creates an empty board titled title.
func New(title, empty string, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		empty:  empty,
		width:  width,
		height: height,
	}
}

// SetMissions shows leads.
func (m *Model) SetMissions(missions []model.Mission) tea.Cmd {
	items := make([]list.Item, len(missions))
	for i, mission := range missions {
		items[i] = MissionItem{Mission: mission}
	}
	m.err = nil
	return m.list.SetItems(items)
}

// SetBids shows bids.
func (m *Model) SetBids(bids []model.Bid) tea.Cmd {
	items := make([]list.Item, len(bids))
	for i, bid := range bids {
		items[i] = BidItem{Bid: bid}
	}
	m.err = nil
	return m.list.SetItems(items)
}

// SetError shows err above the last loaded list.
func (m *Model) SetError(err error) {
	m.err = err
}

// Update handles messages for the board.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Select) {
		switch it := m.list.SelectedItem().(type) {
		case MissionItem:
			return m, func() tea.Msg { return OpenMissionMsg{MissionID: it.Mission.ID} }
		case BidItem:
			return m, func() tea.Msg { return OpenBidMsg{BidID: it.Bid.ID} }
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the board.
func (m Model) View() string {
	var banner string
	if m.err != nil {
		banner = theme.ErrorStyle.Render("⚠ " + m.err.Error())
	}

	var body string
	if len(m.list.Items()) == 0 {
		body = lipgloss.NewStyle().
			Width(m.width).
			Height(m.height-lipgloss.Height(banner)).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(m.empty)
	} else {
		body = m.list.View()
	}

	if banner == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, banner, body)
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
