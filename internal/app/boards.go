package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/bidboard/internal/model"
)

// leadsLoadedMsg is sent after the leads board was reloaded.
type leadsLoadedMsg struct {
	userID int64
	err    error
}

// bidsLoadedMsg is sent after the bids board was reloaded.
type bidsLoadedMsg struct {
	userID int64
	err    error
}

// missionOpenedMsg is sent after a lead was opened.
type missionOpenedMsg struct {
	userID  int64
	mission model.Mission
	ok      bool
}

// loadBoards reloads the contractor's leads and bids. Homeowners have no
// boards.
func (m Model) loadBoards() tea.Cmd {
	if m.active == nil || m.active.user.Role != model.RoleContractor {
		return nil
	}
	us := m.active
	timeout := m.deps.Config.RequestTimeout()

	loadLeads := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return leadsLoadedMsg{userID: us.user.ID, err: us.leads.Load(ctx)}
	}
	loadBids := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return bidsLoadedMsg{userID: us.user.ID, err: us.bids.Load(ctx)}
	}
	return tea.Batch(loadLeads, loadBids)
}

// openMission marks a lead viewed locally and on the server.
func (m Model) openMission(missionID int64) tea.Cmd {
	if m.active == nil {
		return nil
	}
	us := m.active
	timeout := m.deps.Config.RequestTimeout()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		mission, ok := us.leads.Open(ctx, missionID)
		return missionOpenedMsg{userID: us.user.ID, mission: mission, ok: ok}
	}
}

// isCurrent reports whether a message produced for userID still applies.
func (m Model) isCurrent(userID int64) bool {
	return m.active != nil && m.active.user.ID == userID
}
