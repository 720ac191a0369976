package source

import (
	"context"
	"sync"

	"github.com/nhle/bidboard/internal/model"
)

// once memoizes the first result of a call for the lifetime of a scope.
type once[T any] struct {
	o   sync.Once
	val T
	err error
}

func (c *once[T]) do(fn func() (T, error)) (T, error) {
	c.o.Do(func() {
		c.val, c.err = fn()
	})
	return c.val, c.err
}

// scoped shares endpoint results among every adapter of one refresh
// cycle, so the dashboard and reviews adapters (and the inbox) read a
// single notifications response.
type scoped struct {
	backend       Backend
	notifications once[[]model.Notification]
	conversations once[[]model.Conversation]
	acceptedBids  once[[]model.AcceptedBid]
	recentBids    once[[]model.Bid]
}

// Scope wraps b so each endpoint is fetched at most once. A new scope must
// be created per refresh cycle.
func Scope(b Backend) Backend {
	return &scoped{backend: b}
}

func (s *scoped) Notifications(ctx context.Context) ([]model.Notification, error) {
	return s.notifications.do(func() ([]model.Notification, error) {
		return s.backend.Notifications(ctx)
	})
}

func (s *scoped) Conversations(ctx context.Context) ([]model.Conversation, error) {
	return s.conversations.do(func() ([]model.Conversation, error) {
		return s.backend.Conversations(ctx)
	})
}

func (s *scoped) AcceptedBids(ctx context.Context) ([]model.AcceptedBid, error) {
	return s.acceptedBids.do(func() ([]model.AcceptedBid, error) {
		return s.backend.AcceptedBids(ctx)
	})
}

// Leads is not memoized: callers may ask for different pages.
func (s *scoped) Leads(ctx context.Context, page, limit int) ([]model.Mission, error) {
	return s.backend.Leads(ctx, page, limit)
}

func (s *scoped) RecentBids(ctx context.Context) ([]model.Bid, error) {
	return s.recentBids.do(func() ([]model.Bid, error) {
		return s.backend.RecentBids(ctx)
	})
}
