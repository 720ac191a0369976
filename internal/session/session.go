// Package session holds the dashboard state of one signed-in user: the
// badge counts, the notification inbox, and the optimistic mutations the
// user triggers before the server has confirmed them.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/model"
)

// Remote is the subset of the API a session writes to.
type Remote interface {
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkNotificationsViewed(ctx context.Context) error
	ClearNotifications(ctx context.Context) error
}

// Mirror persists the inbox locally. Implemented by store.Store.
type Mirror interface {
	ReplaceNotifications(ctx context.Context, userID int64, list []model.Notification) error
	MarkNotificationRead(ctx context.Context, userID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
	ClearNotifications(ctx context.Context, userID int64) error
}

const defaultCallTimeout = 15 * time.Second

// Session is safe for concurrent use. Writes after Close are ignored.
type Session struct {
	id          string
	user        model.User
	remote      Remote
	mirror      Mirror
	log         *slog.Logger
	callTimeout time.Duration

	mu            sync.Mutex
	counts        model.NotificationCounts
	notifications []model.Notification
	refreshed     bool
	closed        bool

	subs    []*eventbus.Subscription
	pending sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithMirror mirrors inbox changes to m.
func WithMirror(m Mirror) Option {
	return func(s *Session) {
		s.mirror = m
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithCallTimeout bounds each background server call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.callTimeout = d
	}
}

// New creates a session for user with all-zero counts. When bus is not nil
// the session subscribes to page events until Close.
func New(user model.User, remote Remote, bus *eventbus.Bus, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		user:        user,
		remote:      remote,
		log:         slog.Default(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("session", s.id), slog.Int64("user_id", user.ID))

	if bus != nil {
		s.subs = append(s.subs,
			eventbus.Subscribe(bus, func(e eventbus.BidViewed) { s.onBidViewed(e) }),
			eventbus.Subscribe(bus, func(e eventbus.MissionViewed) { s.onMissionViewed(e) }),
			eventbus.Subscribe(bus, func(eventbus.ReviewsPageViewed) { s.OnReviewsPageViewed() }),
		)
	}

	return s
}

// ID uniquely identifies this session in logs.
func (s *Session) ID() string { return s.id }

// User returns the user the session belongs to.
func (s *Session) User() model.User { return s.user }

// Counts returns the current badge counts.
func (s *Session) Counts() model.NotificationCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// Notifications returns a copy of the inbox.
func (s *Session) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.notifications...)
}

// UnreadCount returns how many inbox entries are unread.
func (s *Session) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked()
}

func (s *Session) unreadLocked() int {
	n := 0
	for _, item := range s.notifications {
		if !item.IsRead {
			n++
		}
	}
	return n
}

// Replace swaps in counts computed by a refresh.
func (s *Session) Replace(counts model.NotificationCounts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.counts = counts.Clamp()
	s.refreshed = true
}

// Seed shows cached counts and inbox until the first Replace. It reports
// false, changing nothing, once a refresh has landed.
func (s *Session) Seed(counts model.NotificationCounts, list []model.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.refreshed {
		return false
	}
	s.counts = counts.Clamp()
	if len(list) > 0 {
		s.notifications = append([]model.Notification(nil), list...)
	}
	return true
}

// SetNotifications replaces the inbox with list. Entries already read
// locally stay read even if the server still reports them unread.
func (s *Session) SetNotifications(list []model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	read := make(map[int64]bool, len(s.notifications))
	for _, item := range s.notifications {
		if item.IsRead {
			read[item.ID] = true
		}
	}

	next := make([]model.Notification, len(list))
	for i, item := range list {
		if read[item.ID] {
			item.IsRead = true
		}
		next[i] = item
	}
	s.notifications = next

	s.mirrorLocked("replace inbox", func(ctx context.Context) error {
		return s.mirror.ReplaceNotifications(ctx, s.user.ID, next)
	})
}

// OnDashboardViewed clears the dashboard badge.
func (s *Session) OnDashboardViewed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.counts = s.counts.With(model.BucketDashboard, 0)
}

// OnRouteChanged applies the badge reset tied to visiting route.
func (s *Session) OnRouteChanged(route string) {
	switch route {
	case s.user.Role.DashboardRoute():
		s.OnDashboardViewed()
	case s.user.Role.MessagesRoute():
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.counts = s.counts.With(model.BucketMessages, 0)
	}
}

// OnNotificationClicked marks one notification read and decrements the
// badge its type feeds. Clicking an already read or unknown notification
// changes nothing.
func (s *Session) OnNotificationClicked(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	idx := s.indexLocked(id)
	if idx < 0 || s.notifications[idx].IsRead {
		return
	}

	s.notifications[idx].IsRead = true
	if bucket, ok := model.BucketFor(s.notifications[idx].Type); ok {
		s.counts = s.counts.Decrement(bucket)
	}

	s.fireLocked("mark notification read", func(ctx context.Context) error {
		return s.remote.MarkNotificationRead(ctx, id)
	})
	s.mirrorLocked("mark notification read", func(ctx context.Context) error {
		return s.mirror.MarkNotificationRead(ctx, s.user.ID, id)
	})
}

// OnBellOpened zeroes every badge and marks the inbox read when it holds
// unread entries. The server call is not awaited and a failure does not
// restore the previous state.
//
// All five buckets are zeroed, including myBids and messages which are
// not sourced from the inbox.
func (s *Session) OnBellOpened() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.unreadLocked() == 0 {
		return
	}

	s.counts = model.NotificationCounts{}
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}

	s.fireLocked("mark notifications viewed", func(ctx context.Context) error {
		return s.remote.MarkNotificationsViewed(ctx)
	})
	s.mirrorLocked("mark inbox read", func(ctx context.Context) error {
		return s.mirror.MarkAllNotificationsRead(ctx, s.user.ID)
	})
}

// OnClearAll empties the inbox and zeroes every badge regardless of how
// the server responds.
func (s *Session) OnClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.counts = model.NotificationCounts{}
	s.notifications = nil

	s.fireLocked("clear notifications", func(ctx context.Context) error {
		return s.remote.ClearNotifications(ctx)
	})
	s.mirrorLocked("clear inbox", func(ctx context.Context) error {
		return s.mirror.ClearNotifications(ctx, s.user.ID)
	})
}

// OnReviewsPageViewed marks every unread review notification read and
// clears the reviews badge.
func (s *Session) OnReviewsPageViewed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for i := range s.notifications {
		item := &s.notifications[i]
		if item.Type != model.NotificationNewReview || item.IsRead {
			continue
		}
		item.IsRead = true

		id := item.ID
		s.fireLocked("mark review read", func(ctx context.Context) error {
			return s.remote.MarkNotificationRead(ctx, id)
		})
		s.mirrorLocked("mark review read", func(ctx context.Context) error {
			return s.mirror.MarkNotificationRead(ctx, s.user.ID, id)
		})
	}
	s.counts = s.counts.With(model.BucketReviews, 0)
}

func (s *Session) onBidViewed(e eventbus.BidViewed) {
	if s.user.Role != model.RoleContractor {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.counts = s.counts.Decrement(model.BucketMyBids)
	s.log.Debug("Bid viewed", slog.Int64("bid_id", e.BidID), slog.Int("my_bids", s.counts.MyBids))
}

// A viewed mission only lowers the leads count once the server agrees, so
// the badge waits for the next refresh.
func (s *Session) onMissionViewed(e eventbus.MissionViewed) {
	s.log.Debug("Mission viewed", slog.Int64("mission_id", e.MissionID))
}

func (s *Session) indexLocked(id int64) int {
	for i, item := range s.notifications {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// fireLocked runs call in the background. Must be called with s.mu held
// and s.closed false so Close cannot miss it.
func (s *Session) fireLocked(what string, call func(ctx context.Context) error) {
	if s.remote == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		defer cancel()

		if err := call(ctx); err != nil {
			s.log.Warn("Server update failed, keeping local state",
				slog.String("op", what),
				slog.String("error", err.Error()))
		}
	}()
}

// mirrorLocked writes to the local store while s.mu is held so mirror
// writes apply in the same order as the in-memory changes.
func (s *Session) mirrorLocked(what string, write func(ctx context.Context) error) {
	if s.mirror == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	if err := write(ctx); err != nil {
		s.log.Warn("Inbox cache update failed",
			slog.String("op", what),
			slog.String("error", err.Error()))
	}
}

// Wait blocks until every background server call has returned.
func (s *Session) Wait() {
	s.pending.Wait()
}

// Close unsubscribes from the bus, waits for background calls, and makes
// every later write a no-op. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.pending.Wait()
}
