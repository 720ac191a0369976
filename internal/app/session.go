package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/auth"
	"github.com/nhle/bidboard/internal/badge"
	"github.com/nhle/bidboard/internal/credential"
	"github.com/nhle/bidboard/internal/leads"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/session"
	"github.com/nhle/bidboard/internal/source"
	"github.com/nhle/bidboard/internal/store"
	"github.com/nhle/bidboard/internal/ui/nav"
)

// Backend is everything the dashboard needs from the marketplace API.
// *api.Client implements it.
type Backend interface {
	source.Backend
	session.Remote
	auth.ProfileFetcher
	MarkMissionViewed(ctx context.Context, missionID int64) error
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
}

// Credentials reads and stores the signed-in user's tokens.
type Credentials interface {
	AccessToken() (string, error)
	SaveLogin(access, refresh string) error
}

// userSession bundles the per-user state. It is rebuilt on every sign-in
// so nothing leaks between accounts.
type userSession struct {
	user       model.User
	session    *session.Session
	aggregator *badge.Aggregator
	leads      *leads.LeadBoard
	bids       *leads.BidBoard
}

// userResolvedMsg is sent once the stored token has been turned into a
// user, or that failed.
type userResolvedMsg struct {
	user model.User
	err  error
}

// loginFailedMsg is sent when the sign-in form was rejected.
type loginFailedMsg struct{ err error }

// cacheLoadedMsg carries the locally cached inbox and badges of a user.
type cacheLoadedMsg struct {
	userID        int64
	counts        model.NotificationCounts
	hasSnapshot   bool
	notifications []model.Notification
}

// resolveUser turns the stored access token into the current user.
func (m Model) resolveUser() tea.Cmd {
	backend, creds := m.deps.Backend, m.deps.Credentials
	timeout, log := m.deps.Config.RequestTimeout(), m.log

	return func() tea.Msg {
		token, err := creds.AccessToken()
		if err != nil {
			return userResolvedMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		user, err := auth.Resolve(ctx, backend, token, log)
		return userResolvedMsg{user: user, err: err}
	}
}

// login exchanges the submitted credentials for tokens and stores them.
func (m Model) login(req api.LoginRequest) tea.Cmd {
	backend, creds := m.deps.Backend, m.deps.Credentials
	timeout, log := m.deps.Config.RequestTimeout(), m.log

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := backend.Login(ctx, req)
		if err != nil {
			return loginFailedMsg{err: err}
		}
		if err := creds.SaveLogin(resp.Token, resp.RefreshToken); err != nil {
			log.Warn("Failed to store credentials", slog.String("error", err.Error()))
		}
		return userResolvedMsg{user: resp.User}
	}
}

// loginPrompt picks the message shown above the sign-in form for err.
func loginPrompt(err error) string {
	switch {
	case err == nil, errors.Is(err, credential.ErrNoCredentials):
		return ""
	case api.IsAuthError(err):
		return "Your session has expired. Please sign in again."
	default:
		return err.Error()
	}
}

// startSession replaces the active user session with one for user and
// points the scheduler at it.
func (m *Model) startSession(user model.User) tea.Cmd {
	var cmds []tea.Cmd

	if old := m.active; old != nil {
		m.active = nil
		cmds = append(cmds, func() tea.Msg {
			old.session.Close()
			return nil
		})
	}

	opts := []session.Option{session.WithLogger(m.log)}
	if m.deps.Store != nil {
		opts = append(opts, session.WithMirror(m.deps.Store))
	}
	sess := session.New(user, m.deps.Backend, m.deps.Bus, opts...)

	agg, err := badge.New(user.Role, m.deps.Backend, sess,
		badge.WithLogger(m.log),
		badge.WithMetrics(m.deps.Metrics))
	if err != nil {
		sess.Close()
		m.scheduler.Pause()
		cmds = append(cmds, m.showLogin(err.Error()))
		return tea.Batch(cmds...)
	}

	m.active = &userSession{
		user:       user,
		session:    sess,
		aggregator: agg,
		leads:      leads.NewLeadBoard(m.deps.Backend, m.deps.Bus, m.log),
		bids:       leads.NewBidBoard(m.deps.Backend, m.deps.Bus),
	}
	m.nav = nav.New(user.Role)
	m.helpView.SetRole(user.Role)
	m.lastRefresh = time.Time{}
	m.authErrorMessage = ""
	m.statusMessage = ""
	m.currentView = ViewMain
	m.syncInbox()

	m.log.Info("Session started",
		slog.String("session", sess.ID()),
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)))

	m.scheduler.SetUser(user.ID, agg)
	if !m.waiting {
		m.waiting = true
		cmds = append(cmds, m.scheduler.WaitForNextResult())
	}

	m.enterRoute(m.nav.Active())
	cmds = append(cmds, m.loadCache(user.ID), m.loadBoards())
	return tea.Batch(cmds...)
}

// loadCache reads the last known badges and inbox for userID so the
// dashboard has something to show before the first refresh lands.
func (m Model) loadCache(userID int64) tea.Cmd {
	s := m.deps.Store
	if s == nil {
		return nil
	}
	log := m.log

	return func() tea.Msg {
		ctx := context.Background()
		msg := cacheLoadedMsg{userID: userID}

		counts, _, err := s.LastSnapshot(ctx, userID)
		switch {
		case err == nil:
			msg.counts = counts
			msg.hasSnapshot = true
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("Failed to read badge snapshot", slog.String("error", err.Error()))
		}

		list, err := s.GetNotifications(ctx, userID)
		if err != nil {
			log.Warn("Failed to read cached inbox", slog.String("error", err.Error()))
		}
		msg.notifications = list
		return msg
	}
}

// saveSnapshot records counts as the user's latest badges.
func (m Model) saveSnapshot(userID int64, counts model.NotificationCounts, at time.Time) tea.Cmd {
	s := m.deps.Store
	if s == nil {
		return nil
	}
	log := m.log

	return func() tea.Msg {
		if err := s.SaveSnapshot(context.Background(), userID, counts, at); err != nil {
			log.Warn("Failed to save badge snapshot", slog.String("error", err.Error()))
		}
		return nil
	}
}
