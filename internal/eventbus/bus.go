// Package eventbus is the in-process publish/subscribe bridge that lets
// views announce what the user did without importing the components that
// react to it. Nothing here is persisted or sent over the network.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Topic is the string key an event is dispatched under.
type Topic string

const (
	TopicMissionViewed       Topic = "mission-viewed"
	TopicBidViewed           Topic = "bid-viewed"
	TopicNotificationUpdated Topic = "notification-updated"
	TopicReviewsPageViewed   Topic = "reviews-page-viewed"
)

// Event is implemented by every payload type published on the bus.
type Event interface {
	Topic() Topic
}

// MissionViewed is published when a contractor opens a mission's detail.
type MissionViewed struct {
	MissionID int64
}

// Topic implements Event.
func (MissionViewed) Topic() Topic { return TopicMissionViewed }

// BidViewed is published when a contractor opens one of their bids.
type BidViewed struct {
	BidID int64
}

// Topic implements Event.
func (BidViewed) Topic() Topic { return TopicBidViewed }

// NotificationUpdated asks badge owners to resynchronize with the server.
type NotificationUpdated struct{}

// Topic implements Event.
func (NotificationUpdated) Topic() Topic { return TopicNotificationUpdated }

// ReviewsPageViewed is published when the reviews page is shown.
type ReviewsPageViewed struct{}

// Topic implements Event.
func (ReviewsPageViewed) Topic() Topic { return TopicReviewsPageViewed }

type handlerEntry struct {
	id string
	fn func(Event)
}

// Bus dispatches events synchronously to subscribers in the order they
// subscribed. The zero value is not usable; call New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]handlerEntry
	log      *slog.Logger
}

// New creates an empty bus.
func New(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		handlers: make(map[Topic][]handlerEntry),
		log:      log,
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus   *Bus
	topic Topic
	id    string
	once  sync.Once
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}

// Subscribe registers fn for every published event of type T.
func Subscribe[T Event](b *Bus, fn func(T)) *Subscription {
	var zero T
	topic := zero.Topic()

	entry := handlerEntry{
		id: uuid.NewString(),
		fn: func(ev Event) {
			if typed, ok := ev.(T); ok {
				fn(typed)
			}
		},
	}

	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], entry)
	b.mu.Unlock()

	return &Subscription{bus: b, topic: topic, id: entry.id}
}

// Publish runs every handler subscribed to ev's topic before returning.
// A panicking handler is logged and does not prevent later handlers from
// running.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	entries := make([]handlerEntry, len(b.handlers[ev.Topic()]))
	copy(entries, b.handlers[ev.Topic()])
	b.mu.RUnlock()

	for _, entry := range entries {
		b.dispatch(ev, entry)
	}
}

// HandlerCount returns the number of live subscriptions for topic.
func (b *Bus) HandlerCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

func (b *Bus) dispatch(ev Event, entry handlerEntry) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked",
				slog.String("topic", string(ev.Topic())),
				slog.String("subscription", entry.id),
				slog.String("reason", fmt.Sprint(r)))
		}
	}()
	entry.fn(ev)
}

func (b *Bus) remove(topic Topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[topic]
	for i, entry := range entries {
		if entry.id != id {
			continue
		}
		b.handlers[topic] = append(entries[:i:i], entries[i+1:]...)
		break
	}
	if len(b.handlers[topic]) == 0 {
		delete(b.handlers, topic)
	}
}
