package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/eventbus"
)

func TestPublishRunsHandlersInSubscriptionOrder(t *testing.T) {
	bus := eventbus.New(nil)

	var order []string
	eventbus.Subscribe(bus, func(ev eventbus.MissionViewed) {
		order = append(order, "first")
		require.Equal(t, int64(42), ev.MissionID)
	})
	eventbus.Subscribe(bus, func(eventbus.MissionViewed) {
		order = append(order, "second")
	})
	eventbus.Subscribe(bus, func(eventbus.BidViewed) {
		order = append(order, "other topic")
	})

	bus.Publish(eventbus.MissionViewed{MissionID: 42})

	// Handlers ran before Publish returned.
	require.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := eventbus.New(nil)

	calls := 0
	sub := eventbus.Subscribe(bus, func(eventbus.NotificationUpdated) { calls++ })
	keep := eventbus.Subscribe(bus, func(eventbus.NotificationUpdated) { calls += 10 })
	require.NotEqual(t, sub.ID(), keep.ID())
	require.Equal(t, 2, bus.HandlerCount(eventbus.TopicNotificationUpdated))

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.Equal(t, 1, bus.HandlerCount(eventbus.TopicNotificationUpdated))

	bus.Publish(eventbus.NotificationUpdated{})
	require.Equal(t, 10, calls)

	keep.Unsubscribe()
	require.Equal(t, 0, bus.HandlerCount(eventbus.TopicNotificationUpdated))
	bus.Publish(eventbus.NotificationUpdated{})
	require.Equal(t, 10, calls)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := eventbus.New(nil)

	reached := false
	eventbus.Subscribe(bus, func(eventbus.ReviewsPageViewed) { panic("broken view") })
	eventbus.Subscribe(bus, func(eventbus.ReviewsPageViewed) { reached = true })

	require.NotPanics(t, func() { bus.Publish(eventbus.ReviewsPageViewed{}) })
	require.True(t, reached)
}

func TestHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := eventbus.New(nil)

	calls := 0
	var sub *eventbus.Subscription
	sub = eventbus.Subscribe(bus, func(eventbus.BidViewed) {
		calls++
		sub.Unsubscribe()
	})

	bus.Publish(eventbus.BidViewed{BidID: 1})
	bus.Publish(eventbus.BidViewed{BidID: 2})
	require.Equal(t, 1, calls)
}
