package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/keys"
	"github.com/nhle/bidboard/internal/metrics"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/store"
	appsync "github.com/nhle/bidboard/internal/sync"
	"github.com/nhle/bidboard/internal/theme"
	"github.com/nhle/bidboard/internal/ui"
	"github.com/nhle/bidboard/internal/ui/boards"
	"github.com/nhle/bidboard/internal/ui/command"
	helpview "github.com/nhle/bidboard/internal/ui/help"
	"github.com/nhle/bidboard/internal/ui/inbox"
	"github.com/nhle/bidboard/internal/ui/login"
	"github.com/nhle/bidboard/internal/ui/nav"
	"github.com/nhle/bidboard/internal/ui/overview"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewMain
	ViewInbox
	ViewLogin
	ViewHelp
	ViewCommand
)

// Deps are the long-lived services the dashboard is built on. Store,
// Bus and Metrics may be nil.
type Deps struct {
	Backend     Backend
	Credentials Credentials
	Store       store.Store
	Bus         *eventbus.Bus
	Metrics     *metrics.Collector
	Config      *model.AppConfig
	Log         *slog.Logger
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and the signed-in user's session.
type Model struct {
	deps         Deps
	log          *slog.Logger
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	nav          nav.Model
	inbox        inbox.Model
	leadsView    boards.Model
	bidsView     boards.Model
	loginView    login.Model
	helpView     helpview.Model
	commandView  command.Model
	scheduler    *appsync.Scheduler
	active       *userSession
	ready        bool
	waiting      bool
	now          func() time.Time

	lastRefresh      time.Time
	authErrorMessage string
	statusMessage    string
}

// New creates the root model. Polling starts once a user is resolved.
func New(deps Deps) Model {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Config == nil {
		deps.Config = &model.AppConfig{}
	}

	k := keys.DefaultKeyMap()
	scheduler := appsync.New(deps.Config.PollInterval(),
		appsync.WithLogger(deps.Log),
		appsync.WithMetrics(deps.Metrics),
		appsync.WithBus(deps.Bus))

	return Model{
		deps:        deps,
		log:         deps.Log,
		currentView: ViewLoading,
		keys:        k,
		inbox:       inbox.New(k, 80, 24),
		leadsView:   boards.New("Leads", "No leads right now.", k, 80, 24),
		bidsView:    boards.New("My Bids", "You have not bid on anything yet.", k, 80, 24),
		loginView:   login.New(80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		scheduler:   scheduler,
		now:         time.Now,
	}
}

// Init resolves the stored credentials into a user.
func (m Model) Init() tea.Cmd {
	return m.resolveUser()
}

// Shutdown stops polling and closes the active session. Call it after
// the program exits.
func (m Model) Shutdown() {
	m.scheduler.Stop()
	if m.active != nil {
		m.active.session.Close()
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.inbox.SetSize(w, h)
		m.leadsView.SetSize(w, h)
		m.bidsView.SetSize(w, h)
		m.loginView.SetSize(m.layout.Width, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case userResolvedMsg:
		if msg.err != nil {
			m.log.Info("Sign-in required", slog.String("reason", msg.err.Error()))
			cmd := m.showLogin(loginPrompt(msg.err))
			return m, cmd
		}
		cmd := m.startSession(msg.user)
		return m, cmd

	case loginFailedMsg:
		cmd := m.showLogin(msg.err.Error())
		return m, cmd

	case login.SubmitMsg:
		m.statusMessage = "signing in..."
		return m, m.login(msg.Request)

	case login.CancelMsg:
		if m.active == nil || m.authErrorMessage != "" {
			return m, m.quit()
		}
		m.currentView = ViewMain
		return m, nil

	case cacheLoadedMsg:
		if !m.isCurrent(msg.userID) {
			return m, nil
		}
		if !msg.hasSnapshot && len(msg.notifications) == 0 {
			return m, nil
		}
		if m.active.session.Seed(msg.counts, msg.notifications) {
			// The cached counts predate the route the user is on.
			m.active.session.OnRouteChanged(m.nav.Active().Path)
		}
		cmd := m.syncInbox()
		return m, cmd

	case appsync.RefreshResultMsg:
		wait := m.scheduler.WaitForNextResult()
		if !m.isCurrent(msg.UserID) {
			return m, wait
		}
		if msg.AuthError != nil {
			m.scheduler.Pause()
			m.authErrorMessage = msg.AuthError.Message
			cmd := m.showLogin(loginPrompt(msg.Error))
			return m, tea.Batch(wait, cmd)
		}
		if msg.Error != nil {
			m.statusMessage = "refresh failed: " + msg.Error.Error()
			return m, wait
		}
		m.lastRefresh = msg.At
		m.statusMessage = ""
		m.syncInbox()
		return m, tea.Batch(wait, m.saveSnapshot(msg.UserID, m.active.session.Counts(), msg.At))

	case leadsLoadedMsg:
		if m.isCurrent(msg.userID) {
			m.leadsView.SetError(msg.err)
			cmd := m.leadsView.SetMissions(m.active.leads.Missions())
			return m, cmd
		}
		return m, nil

	case bidsLoadedMsg:
		if m.isCurrent(msg.userID) {
			m.bidsView.SetError(msg.err)
			cmd := m.bidsView.SetBids(m.active.bids.Bids())
			return m, cmd
		}
		return m, nil

	case missionOpenedMsg:
		if m.isCurrent(msg.userID) && msg.ok {
			m.statusMessage = fmt.Sprintf("opened %q", msg.mission.Title)
			cmd := m.leadsView.SetMissions(m.active.leads.Missions())
			return m, cmd
		}
		return m, nil

	case boards.OpenMissionMsg:
		return m, m.openMission(msg.MissionID)

	case boards.OpenBidMsg:
		if m.active != nil {
			if bid, ok := m.active.bids.Open(msg.BidID); ok {
				m.statusMessage = fmt.Sprintf("bid on %q is %s", bid.MissionTitle, bid.Status)
				cmd := m.bidsView.SetBids(m.active.bids.Bids())
				return m, cmd
			}
		}
		return m, nil

	case inbox.ClickMsg:
		if m.active != nil {
			m.active.session.OnNotificationClicked(msg.ID)
			cmd := m.syncInbox()
			return m, cmd
		}
		return m, nil

	case inbox.ClearAllMsg:
		if m.active != nil {
			m.active.session.OnClearAll()
			cmd := m.syncInbox()
			return m, cmd
		}
		return m, nil

	case inbox.CloseMsg:
		m.currentView = ViewMain
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}

		// The login form and command palette own every other key.
		if m.currentView == ViewLogin {
			break
		}
		if m.currentView == ViewCommand {
			if msg.String() == "esc" {
				m.currentView = m.previousView
				return m, nil
			}
			break
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command):
			m.previousView = m.currentView
			m.currentView = ViewCommand
			cmd := m.commandView.Focus()
			return m, cmd

		case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
			m.currentView = m.previousView
			return m, nil
		}

		if m.currentView != ViewMain || m.active == nil {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, m.quit()

		case key.Matches(msg, m.keys.NextRoute):
			m.enterRoute(m.nav.Next())
			return m, nil

		case key.Matches(msg, m.keys.PrevRoute):
			m.enterRoute(m.nav.Prev())
			return m, nil

		case key.Matches(msg, m.keys.Bell):
			cmd := m.openBell()
			return m, cmd

		case key.Matches(msg, m.keys.Refresh):
			cmd := m.refresh()
			return m, cmd

		case key.Matches(msg, m.keys.Login):
			cmd := m.showLogin("")
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewMain:
		if m.active == nil || m.active.user.Role != model.RoleContractor {
			break
		}
		switch m.nav.Active().Name {
		case nav.RouteDashboard:
			m.leadsView, cmd = m.leadsView.Update(msg)
		case nav.RouteBids:
			m.bidsView, cmd = m.bidsView.Update(msg)
		}
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// enterRoute applies the badge side effects of navigating to r.
func (m *Model) enterRoute(r nav.Route) {
	if m.active == nil {
		return
	}
	m.active.session.OnRouteChanged(r.Path)

	if r.Name == nav.RouteReviews && m.active.user.Role == model.RoleContractor {
		if m.deps.Bus != nil {
			m.deps.Bus.Publish(eventbus.ReviewsPageViewed{})
		} else {
			m.active.session.OnReviewsPageViewed()
		}
		m.syncInbox()
	}
}

// openBell marks the inbox seen and shows the notification panel.
func (m *Model) openBell() tea.Cmd {
	if m.active == nil {
		return nil
	}
	m.active.session.OnBellOpened()
	m.currentView = ViewInbox
	return m.syncInbox()
}

// refresh asks the scheduler for an immediate refresh and reloads the
// boards.
func (m *Model) refresh() tea.Cmd {
	if m.deps.Bus != nil {
		m.deps.Bus.Publish(eventbus.NotificationUpdated{})
	} else {
		m.scheduler.Trigger()
	}
	m.statusMessage = "refreshing..."
	return m.loadBoards()
}

// showLogin switches to the sign-in form with an optional message.
func (m *Model) showLogin(message string) tea.Cmd {
	m.currentView = ViewLogin
	m.statusMessage = ""
	return m.loginView.Start(message)
}

// syncInbox copies the session's notifications into the bell panel.
func (m *Model) syncInbox() tea.Cmd {
	if m.active == nil {
		return m.inbox.SetNotifications(nil)
	}
	return m.inbox.SetNotifications(m.active.session.Notifications())
}

func (m Model) quit() tea.Cmd {
	m.scheduler.Stop()
	return tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	sidebar := ""
	if m.active != nil && m.currentView != ViewLogin {
		n := m.nav
		n.SetCounts(m.active.session.Counts())
		sidebar = n.View()
	}

	return m.layout.RenderWithFrame(header, sidebar, m.renderContent(), statusBar)
}

func (m Model) headerTitle() string {
	if m.active == nil {
		return "bidboard"
	}
	return fmt.Sprintf("bidboard · %s (%s)", m.active.user.DisplayName(), m.active.user.Role)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLoading:
		return theme.DimmedStyle.Render("Connecting...")
	case ViewMain:
		return m.renderRoute()
	case ViewInbox:
		return m.inbox.View()
	case ViewLogin:
		return m.loginView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// renderRoute draws the page behind the active navigation entry.
func (m Model) renderRoute() string {
	if m.active == nil {
		return ""
	}

	var (
		user   = m.active.user
		counts = m.active.session.Counts()
		notes  = m.active.session.Notifications()
		w, h   = m.layout.ContentWidth(), m.layout.ContentHeight()
		page   overview.Page
	)

	switch m.nav.Active().Name {
	case nav.RouteDashboard:
		if user.Role == model.RoleContractor {
			return m.leadsView.View()
		}
		page = overview.Page{
			Title:         "Dashboard",
			Count:         counts.Dashboard,
			Counted:       true,
			Blurb:         "New bids on your missions.",
			Notifications: overview.FilterByType(notes, model.NotificationNewBid),
		}

	case nav.RouteBids:
		return m.bidsView.View()

	case nav.RouteReviews:
		if user.Role == model.RoleContractor {
			page = overview.Page{
				Title:         "Reviews",
				Count:         counts.Reviews,
				Counted:       true,
				Blurb:         "Reviews homeowners left for your work.",
				Notifications: overview.FilterByType(notes, model.NotificationNewReview),
			}
		} else {
			page = overview.Page{
				Title:         "Pending Reviews",
				Count:         counts.PendingReviews,
				Counted:       true,
				Blurb:         "Completed jobs waiting for your review.",
				Notifications: overview.FilterByType(notes, model.NotificationPendingReview),
			}
		}

	case nav.RouteMessages:
		page = overview.Page{
			Title:         "Messages",
			Count:         counts.Messages,
			Counted:       true,
			Blurb:         "Unread messages across your conversations.",
			Notifications: overview.FilterByType(notes, model.NotificationNewMessage),
		}

	case nav.RouteSettings:
		page = overview.Page{
			Title:   "Settings",
			Details: m.settingsDetails(),
		}
	}

	return overview.Render(page, w, h, m.now())
}

func (m Model) settingsDetails() [][2]string {
	user := m.active.user
	cfg := m.deps.Config

	details := [][2]string{
		{"Name", user.DisplayName()},
		{"Email", user.Email},
		{"Role", string(user.Role)},
	}
	if user.CompanyName != "" {
		details = append(details, [2]string{"Company", user.CompanyName})
	}
	details = append(details,
		[2]string{"API", cfg.API.BaseURL},
		[2]string{"Refresh every", cfg.PollInterval().String()},
		[2]string{"Inbox cache", cfg.Store.Path},
		[2]string{"Session", m.active.session.ID()},
	)
	return details
}

// syncStatus returns a short string describing the refresh state.
func (m Model) syncStatus() string {
	if m.active == nil {
		return "signed out"
	}

	status := "waiting for first refresh"
	if !m.lastRefresh.IsZero() {
		status = "updated " + humanize.RelTime(m.lastRefresh, m.now(), "ago", "from now")
	}
	if unread := m.active.session.UnreadCount(); unread > 0 {
		status = fmt.Sprintf("● %d unread | %s", unread, status)
	}
	return status
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show auth error prominently when present.
	if m.authErrorMessage != "" && m.currentView != ViewMain {
		return theme.ErrorStyle.Render(m.authErrorMessage)
	}
	if m.statusMessage != "" && m.currentView == ViewMain {
		return m.statusMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewInbox:
		return "enter open | X clear all | esc close"
	case ViewLogin:
		return "enter next | ctrl+c quit"
	default:
		return "q quit | ? help | tab next page | b notifications | r refresh | : command"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "quit", "q":
		return m.quit()
	case "login":
		return m.showLogin("")
	}

	if m.active == nil {
		return nil
	}

	switch cmd {
	case "refresh", "sync":
		return m.refresh()
	case "notifications", "bell":
		return m.openBell()
	case "clear":
		m.active.session.OnClearAll()
		return m.syncInbox()
	case nav.RouteDashboard, nav.RouteBids, nav.RouteReviews, nav.RouteMessages, nav.RouteSettings:
		m.currentView = ViewMain
		if r, ok := m.nav.Select(cmd); ok {
			m.enterRoute(r)
		}
		return nil
	default:
		m.statusMessage = fmt.Sprintf("unknown command %q", cmd)
		return nil
	}
}
