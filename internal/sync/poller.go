package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/metrics"
	"github.com/nhle/bidboard/internal/model"
)

// Refresher recomputes the badge counts of one user. Implemented by
// badge.Aggregator.
type Refresher interface {
	Refresh(ctx context.Context) (model.NotificationCounts, error)
}

// RefreshResultMsg is a tea.Msg sent when a refresh completes.
type RefreshResultMsg struct {
	UserID     int64
	Generation uint64
	Counts     model.NotificationCounts
	Error      error
	AuthError  *AuthErrorMsg
	At         time.Time
}

// AuthErrorMsg is set on a result when the session is no longer
// authenticated.
type AuthErrorMsg struct {
	Message string
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// run is one polling loop bound to a single user.
type run struct {
	gen       uint64
	userID    int64
	refresher Refresher
	cancel    context.CancelFunc
	trigger   chan struct{}
	inFlight  atomic.Bool
	done      chan struct{}
}

// Scheduler refreshes the active user's badges immediately and then on a
// fixed interval. At most one refresh per user is in flight; ticks and
// triggers that arrive meanwhile are skipped rather than queued.
type Scheduler struct {
	interval time.Duration
	log      *slog.Logger
	metrics  *metrics.Collector
	resultCh chan RefreshResultMsg
	sub      *eventbus.Subscription

	mu      gosync.Mutex
	gen     uint64
	current *run
	stopped bool

	// batch admits one refresh at a time across runs, so a cancelled
	// refresh of a previous user finishes before the next one starts.
	batch chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithMetrics counts skipped ticks on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Scheduler) {
		s.metrics = c
	}
}

// WithBus triggers a refresh whenever a NotificationUpdated event is
// published on bus.
func WithBus(bus *eventbus.Bus) Option {
	return func(s *Scheduler) {
		s.sub = eventbus.Subscribe(bus, func(eventbus.NotificationUpdated) {
			s.Trigger()
		})
	}
}

// New creates a Scheduler. A non-positive interval selects
// model.DefaultPollInterval.
func New(interval time.Duration, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = model.DefaultPollInterval
	}
	s := &Scheduler{
		interval: interval,
		log:      slog.Default(),
		resultCh: make(chan RefreshResultMsg, 16),
		batch:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins polling for userID and returns a command that delivers the
// first result to the Bubble Tea runtime.
func (s *Scheduler) Start(userID int64, r Refresher) tea.Cmd {
	s.SetUser(userID, r)
	return s.WaitForNextResult()
}

// SetUser switches polling to userID. When the id or the refresher differs
// from the active one the current loop is cancelled and drained, pending
// results are discarded, and a new loop starts with exactly one immediate
// refresh. It reports whether a new loop was started. r must be
// comparable; pointers are.
func (s *Scheduler) SetUser(userID int64, r Refresher) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if s.current != nil && s.current.userID == userID && s.current.refresher == r {
		return false
	}

	s.stopLocked()

	s.gen++
	ctx, cancel := context.WithCancel(context.Background())
	cur := &run{
		gen:       s.gen,
		userID:    userID,
		refresher: r,
		cancel:    cancel,
		trigger:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	s.current = cur

	s.log.Info("Badge polling started",
		slog.Int64("user_id", userID),
		slog.Uint64("generation", cur.gen),
		slog.Duration("interval", s.interval))

	go s.loop(ctx, cur)
	return true
}

// UserID returns the user currently polled for, or 0.
func (s *Scheduler) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.userID
}

// Pause stops polling until the next SetUser. A refresh already running
// completes but its result is dropped.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Stop halts polling permanently. A refresh already running completes
// but its result is dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.stopLocked()

	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}

// stopLocked cancels the active loop, waits for its goroutine to exit and
// drops undelivered results.
func (s *Scheduler) stopLocked() {
	cur := s.current
	if cur == nil {
		return
	}
	s.current = nil
	s.gen++

	cur.cancel()
	<-cur.done

	for {
		select {
		case <-s.resultCh:
		default:
			return
		}
	}
}

// Trigger requests an immediate refresh. It reports false when the
// request was skipped because a refresh is already in flight or pending.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur == nil {
		return false
	}
	if cur.inFlight.Load() {
		s.skip(cur, "trigger")
		return false
	}

	select {
	case cur.trigger <- struct{}{}:
		return true
	default:
		s.skip(cur, "trigger")
		return false
	}
}

func (s *Scheduler) loop(ctx context.Context, cur *run) {
	defer close(cur.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.launch(ctx, cur)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.launch(ctx, cur)
		case <-cur.trigger:
			s.launch(ctx, cur)
		}
	}
}

// launch starts a refresh unless one is already in flight for cur.
func (s *Scheduler) launch(ctx context.Context, cur *run) {
	if !cur.inFlight.CompareAndSwap(false, true) {
		s.skip(cur, "tick")
		return
	}

	go func() {
		defer cur.inFlight.Store(false)

		select {
		case s.batch <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-s.batch }()

		s.refresh(ctx, cur)
	}()
}

func (s *Scheduler) refresh(ctx context.Context, cur *run) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	counts, err := cur.refresher.Refresh(ctx)

	msg := RefreshResultMsg{
		UserID:     cur.userID,
		Generation: cur.gen,
		Counts:     counts,
		Error:      err,
		At:         time.Now(),
	}
	if err != nil {
		if api.IsAuthError(err) {
			msg.AuthError = &AuthErrorMsg{
				Message: fmt.Sprintf("session expired: %v. Run 'bidboard login' or press 'l' to sign in again.", err),
			}
		}
		s.log.Warn("Badge refresh failed",
			slog.Int64("user_id", cur.userID),
			slog.String("error", err.Error()))
	}

	s.sendResult(msg)
}

func (s *Scheduler) skip(cur *run, reason string) {
	s.metrics.ObserveSkip()
	s.log.Debug("Refresh skipped, one already in flight",
		slog.Int64("user_id", cur.userID),
		slog.String("reason", reason))
}

// sendResult sends msg without blocking. Results from a superseded
// generation are dropped.
func (s *Scheduler) sendResult(msg RefreshResultMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.gen != msg.Generation {
		return
	}

	select {
	case s.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the refresh goroutine.
	}
}

// Results exposes the result stream for callers outside Bubble Tea.
func (s *Scheduler) Results() <-chan RefreshResultMsg {
	return s.resultCh
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it again after handling each RefreshResultMsg.
func (s *Scheduler) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-s.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
