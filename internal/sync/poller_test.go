package sync_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/log"
	"github.com/nhle/bidboard/internal/metrics"
	"github.com/nhle/bidboard/internal/model"
	bsync "github.com/nhle/bidboard/internal/sync"
)

// fakeRefresher counts calls and tracks how many run at once. When gate
// is set each call blocks until a value is received or ctx ends.
type fakeRefresher struct {
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
	gate    chan struct{}
	started chan struct{}
	counts  model.NotificationCounts
	err     error

	// ignoreCancel keeps the refresh blocked on gate after cancellation.
	ignoreCancel bool
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{started: make(chan struct{}, 16)}
}

func (f *fakeRefresher) Refresh(ctx context.Context) (model.NotificationCounts, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	select {
	case f.started <- struct{}{}:
	default:
	}

	if f.gate != nil && f.ignoreCancel {
		<-f.gate
	} else if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return model.NotificationCounts{}, ctx.Err()
		}
	}
	return f.counts, f.err
}

func waitStarted(t *testing.T, f *fakeRefresher) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not start")
	}
}

func nextResult(t *testing.T, s *bsync.Scheduler) bsync.RefreshResultMsg {
	t.Helper()
	select {
	case msg := <-s.Results():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh result")
		return bsync.RefreshResultMsg{}
	}
}

func TestStartRefreshesImmediately(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	f := newFakeRefresher()
	f.counts = model.NotificationCounts{Dashboard: 2}

	cmd := s.Start(1, f)
	require.NotNil(t, cmd)

	msg, ok := cmd().(bsync.RefreshResultMsg)
	require.True(t, ok)
	require.Equal(t, int64(1), msg.UserID)
	require.Equal(t, 2, msg.Counts.Dashboard)
	require.NoError(t, msg.Error)
	require.Equal(t, int32(1), f.calls.Load())
}

func TestTriggerWhileInFlightIsSkipped(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := bsync.New(time.Hour,
		bsync.WithLogger(log.Discard()),
		bsync.WithMetrics(metrics.New(reg)))
	t.Cleanup(s.Stop)

	f := newFakeRefresher()
	f.gate = make(chan struct{})

	require.True(t, s.SetUser(1, f))
	waitStarted(t, f)

	require.False(t, s.Trigger())
	require.False(t, s.Trigger())
	require.False(t, s.Trigger())

	f.gate <- struct{}{}
	nextResult(t, s)

	require.Equal(t, int32(1), f.calls.Load())
	require.Equal(t, int32(1), f.maxSeen.Load())
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP bidboard_badge_refresh_skipped_total Refresh ticks skipped because a refresh was already in flight.
# TYPE bidboard_badge_refresh_skipped_total counter
bidboard_badge_refresh_skipped_total 3
`), "bidboard_badge_refresh_skipped_total"))

	require.Eventually(t, s.Trigger, time.Second, 5*time.Millisecond)
	waitStarted(t, f)
	f.gate <- struct{}{}
	nextResult(t, s)
	require.Equal(t, int32(2), f.calls.Load())
}

func TestTicksNeverOverlap(t *testing.T) {
	s := bsync.New(5*time.Millisecond, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	f := newFakeRefresher()
	f.gate = make(chan struct{})
	s.SetUser(1, f)
	waitStarted(t, f)

	// Let several ticks fire while the first refresh is blocked.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), f.calls.Load())

	close(f.gate)
	nextResult(t, s)
	require.Equal(t, int32(1), f.maxSeen.Load())
}

func TestSetUserStartsExactlyOneFreshRefresh(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	first := newFakeRefresher()
	first.gate = make(chan struct{})
	require.True(t, s.SetUser(1, first))
	waitStarted(t, first)

	second := newFakeRefresher()
	second.counts = model.NotificationCounts{Reviews: 4}
	require.True(t, s.SetUser(2, second))

	msg := nextResult(t, s)
	require.Equal(t, int64(2), msg.UserID)
	require.Equal(t, 4, msg.Counts.Reviews)
	require.Equal(t, int32(1), second.calls.Load())
	require.Equal(t, int32(1), first.calls.Load())

	// The first user's cancelled refresh never reaches the result stream.
	select {
	case stale := <-s.Results():
		t.Fatalf("unexpected result %+v", stale)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSetUserSameIDIsNoop(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	f := newFakeRefresher()
	require.True(t, s.SetUser(5, f))
	nextResult(t, s)

	require.False(t, s.SetUser(5, f))
	require.Equal(t, int64(5), s.UserID())
	require.Equal(t, int32(1), f.calls.Load())
}

func TestAuthErrorIsFlagged(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	f := newFakeRefresher()
	f.err = &api.AuthError{Path: "/api/notifications", Message: "expired"}
	s.SetUser(1, f)

	msg := nextResult(t, s)
	require.Error(t, msg.Error)
	require.NotNil(t, msg.AuthError)
}

func TestNotificationUpdatedTriggersRefresh(t *testing.T) {
	bus := eventbus.New(log.Discard())
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()), bsync.WithBus(bus))

	f := newFakeRefresher()
	s.SetUser(1, f)
	nextResult(t, s)

	require.Eventually(t, func() bool {
		bus.Publish(eventbus.NotificationUpdated{})
		return f.calls.Load() >= 2
	}, time.Second, 10*time.Millisecond)
	nextResult(t, s)

	s.Stop()
	require.Zero(t, bus.HandlerCount(eventbus.TopicNotificationUpdated))
}

func TestStopDropsLateResults(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))

	f := newFakeRefresher()
	f.gate = make(chan struct{})
	s.SetUser(1, f)
	waitStarted(t, f)

	s.Stop()
	require.False(t, s.SetUser(2, newFakeRefresher()))
	require.False(t, s.Trigger())

	select {
	case msg := <-s.Results():
		t.Fatalf("unexpected result %+v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPauseThenResumeSameUser(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	f := newFakeRefresher()
	require.True(t, s.SetUser(3, f))
	nextResult(t, s)

	s.Pause()
	require.Zero(t, s.UserID())
	require.False(t, s.Trigger())

	require.True(t, s.SetUser(3, f))
	msg := nextResult(t, s)
	require.Equal(t, int64(3), msg.UserID)
	require.Equal(t, int32(2), f.calls.Load())
}

func TestSetUserSameIDNewRefresherRestarts(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	first := newFakeRefresher()
	require.True(t, s.SetUser(5, first))
	nextResult(t, s)

	second := newFakeRefresher()
	second.counts = model.NotificationCounts{Messages: 3}
	require.True(t, s.SetUser(5, second))

	msg := nextResult(t, s)
	require.Equal(t, 3, msg.Counts.Messages)
	require.Equal(t, int32(1), second.calls.Load())

	require.True(t, s.Trigger())
	nextResult(t, s)
	require.Equal(t, int32(1), first.calls.Load())
	require.Equal(t, int32(2), second.calls.Load())
}

func TestSwitchWaitsForCancelledRefresh(t *testing.T) {
	s := bsync.New(time.Hour, bsync.WithLogger(log.Discard()))
	t.Cleanup(s.Stop)

	first := newFakeRefresher()
	first.gate = make(chan struct{})
	first.ignoreCancel = true
	require.True(t, s.SetUser(1, first))
	waitStarted(t, first)

	second := newFakeRefresher()
	require.True(t, s.SetUser(2, second))

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, second.calls.Load())

	close(first.gate)
	msg := nextResult(t, s)
	require.Equal(t, int64(2), msg.UserID)
	require.Equal(t, int32(1), second.calls.Load())
}
