// Package badge computes the navigation badge counts for the signed-in
// user by fanning out to every count source of their role.
package badge

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/metrics"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/source"
)

// Sink receives the result of a successful refresh.
type Sink interface {
	Replace(counts model.NotificationCounts)
	SetNotifications(list []model.Notification)
}

// Aggregator refreshes every badge bucket for one user.
type Aggregator struct {
	role    model.Role
	backend source.Backend
	sink    Sink
	log     *slog.Logger
	metrics *metrics.Collector
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for adapter failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		a.log = l
	}
}

// WithMetrics records refresh outcomes on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Aggregator) {
		a.metrics = c
	}
}

// New returns an Aggregator for role. It fails for roles without a
// dashboard.
func New(role model.Role, backend source.Backend, sink Sink, opts ...Option) (*Aggregator, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("badge aggregator: unknown role %q", role)
	}

	a := &Aggregator{
		role:    role,
		backend: backend,
		sink:    sink,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Role returns the role the aggregator counts for.
func (a *Aggregator) Role() model.Role {
	return a.role
}

type result struct {
	bucket model.Bucket
	count  int
	err    error
}

// Refresh runs every count source concurrently and, once all of them have
// finished, replaces the sink's counts in a single call. A failed source
// contributes zero to its bucket. An authentication failure from any
// source aborts the refresh without touching the sink.
func (a *Aggregator) Refresh(ctx context.Context) (model.NotificationCounts, error) {
	scoped := source.Scope(a.backend)

	sources, err := source.ForRole(a.role, scoped)
	if err != nil {
		return model.NotificationCounts{}, err
	}

	results := make([]result, len(sources))
	var (
		inbox    []model.Notification
		inboxErr error
	)

	// Sources never return an error to the group so that one failure does
	// not cancel the others.
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			n, err := src.Count(ctx)
			results[i] = result{bucket: src.Bucket(), count: n, err: err}
			return nil
		})
	}
	g.Go(func() error {
		inbox, inboxErr = scoped.Notifications(ctx)
		return nil
	})
	_ = g.Wait()

	// A cancelled refresh was superseded; its partial results must not
	// reach the sink.
	if err := ctx.Err(); err != nil {
		return model.NotificationCounts{}, err
	}

	var counts model.NotificationCounts
	for _, r := range results {
		if r.err != nil {
			if api.IsAuthError(r.err) {
				a.metrics.ObserveRefresh(metrics.OutcomeAuthError)
				return model.NotificationCounts{}, r.err
			}
			a.log.Warn("Badge source failed",
				slog.String("bucket", string(r.bucket)),
				slog.String("error", r.err.Error()))
			a.metrics.ObserveSourceFailure(r.bucket)
			continue
		}
		counts = counts.With(r.bucket, counts.Get(r.bucket)+r.count)
	}
	if inboxErr != nil && api.IsAuthError(inboxErr) {
		a.metrics.ObserveRefresh(metrics.OutcomeAuthError)
		return model.NotificationCounts{}, inboxErr
	}

	counts = counts.Clamp()
	a.sink.Replace(counts)
	if inboxErr == nil {
		a.sink.SetNotifications(inbox)
	}

	a.metrics.SetBadges(counts)
	a.metrics.ObserveRefresh(metrics.OutcomeOK)
	return counts, nil
}
