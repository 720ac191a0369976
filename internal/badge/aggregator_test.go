package badge_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/badge"
	"github.com/nhle/bidboard/internal/log"
	"github.com/nhle/bidboard/internal/metrics"
	"github.com/nhle/bidboard/internal/model"
)

type fakeBackend struct {
	notifications []model.Notification
	conversations []model.Conversation
	acceptedBids  []model.AcceptedBid
	leads         []model.Mission
	recentBids    []model.Bid

	notificationsErr error
	conversationsErr error
	acceptedBidsErr  error

	// gate, when set, blocks every call until closed.
	gate chan struct{}
}

func (f *fakeBackend) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) Notifications(ctx context.Context) ([]model.Notification, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.notifications, f.notificationsErr
}

func (f *fakeBackend) Conversations(ctx context.Context) ([]model.Conversation, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.conversations, f.conversationsErr
}

func (f *fakeBackend) AcceptedBids(ctx context.Context) ([]model.AcceptedBid, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.acceptedBids, f.acceptedBidsErr
}

func (f *fakeBackend) Leads(ctx context.Context, _, _ int) ([]model.Mission, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.leads, nil
}

func (f *fakeBackend) RecentBids(ctx context.Context) ([]model.Bid, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.recentBids, nil
}

type recordingSink struct {
	mu            sync.Mutex
	replaced      []model.NotificationCounts
	notifications []model.Notification
}

func (s *recordingSink) Replace(c model.NotificationCounts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced = append(s.replaced, c)
}

func (s *recordingSink) SetNotifications(list []model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = list
}

func (s *recordingSink) calls() []model.NotificationCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.NotificationCounts(nil), s.replaced...)
}

func homeownerBackend() *fakeBackend {
	return &fakeBackend{
		notifications: []model.Notification{
			{ID: 1, Type: model.NotificationNewBid},
			{ID: 2, Type: model.NotificationNewBid},
			{ID: 3, Type: model.NotificationNewBid, IsRead: true},
		},
		conversations: []model.Conversation{
			{ID: 1, UnreadCount: 3},
			{ID: 2, UnreadCount: 1},
		},
		acceptedBids: []model.AcceptedBid{
			{ID: 1, HasReviewed: false},
			{ID: 2, HasReviewed: true},
		},
	}
}

func TestRefreshHomeowner(t *testing.T) {
	backend := homeownerBackend()
	sink := &recordingSink{}

	agg, err := badge.New(model.RoleHomeowner, backend, sink, badge.WithLogger(log.Discard()))
	require.NoError(t, err)

	counts, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	want := model.NotificationCounts{Dashboard: 2, Messages: 4, PendingReviews: 1}
	require.Equal(t, want, counts)
	require.Equal(t, []model.NotificationCounts{want}, sink.calls())
	require.Len(t, sink.notifications, 3)
}

func TestRefreshContractor(t *testing.T) {
	viewed := false
	backend := &fakeBackend{
		notifications: []model.Notification{
			{ID: 1, Type: model.NotificationNewReview},
			{ID: 2, Type: model.NotificationNewBid},
		},
		leads: []model.Mission{
			{ID: 1, ViewedByContractor: &viewed},
			{ID: 2, ViewedByContractor: model.BoolPtr(true)},
			{ID: 3},
		},
		recentBids: []model.Bid{
			{ID: 1, ViewedByContractor: &viewed},
			{ID: 2, ViewedByContractor: &viewed},
		},
	}
	sink := &recordingSink{}

	agg, err := badge.New(model.RoleContractor, backend, sink, badge.WithLogger(log.Discard()))
	require.NoError(t, err)

	counts, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.NotificationCounts{Dashboard: 1, Reviews: 1, MyBids: 2}, counts)
	require.Zero(t, counts.PendingReviews)
}

func TestRefreshFailedSourceContributesZero(t *testing.T) {
	backend := homeownerBackend()
	backend.conversationsErr = errors.New("connection reset")

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)
	sink := &recordingSink{}

	agg, err := badge.New(model.RoleHomeowner, backend, sink,
		badge.WithLogger(log.Discard()), badge.WithMetrics(collector))
	require.NoError(t, err)

	counts, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.NotificationCounts{Dashboard: 2, PendingReviews: 1}, counts)
	require.Len(t, sink.calls(), 1)

	require.Equal(t, 1, testutil.CollectAndCount(reg, "bidboard_badge_source_failures_total"))
}

func TestRefreshAuthErrorLeavesSinkUntouched(t *testing.T) {
	backend := homeownerBackend()
	backend.acceptedBidsErr = &api.AuthError{Path: "/api/homeowner/accepted-bids", Message: "expired"}
	sink := &recordingSink{}

	agg, err := badge.New(model.RoleHomeowner, backend, sink, badge.WithLogger(log.Discard()))
	require.NoError(t, err)

	_, err = agg.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, api.IsAuthError(err))
	require.Empty(t, sink.calls())
	require.Nil(t, sink.notifications)
}

func TestRefreshReplacesOnlyAfterAllSourcesFinish(t *testing.T) {
	backend := homeownerBackend()
	backend.gate = make(chan struct{})
	sink := &recordingSink{}

	agg, err := badge.New(model.RoleHomeowner, backend, sink, badge.WithLogger(log.Discard()))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = agg.Refresh(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, sink.calls())

	close(backend.gate)
	<-done
	require.Len(t, sink.calls(), 1)
}

func TestNewRejectsUnknownRole(t *testing.T) {
	_, err := badge.New(model.Role("admin"), homeownerBackend(), &recordingSink{})
	require.Error(t, err)
}

func TestRefreshCancelledLeavesSinkUntouched(t *testing.T) {
	backend := homeownerBackend()
	backend.gate = make(chan struct{})

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)
	sink := &recordingSink{}

	agg, err := badge.New(model.RoleHomeowner, backend, sink,
		badge.WithLogger(log.Discard()), badge.WithMetrics(collector))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := agg.Refresh(ctx)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	require.Empty(t, sink.calls())
	require.Nil(t, sink.notifications)
	require.Zero(t, testutil.CollectAndCount(reg, "bidboard_badge_source_failures_total"))
}
