// Package source holds the count adapters: one per backend signal, each
// deriving a single badge count from one endpoint.
package source

import (
	"context"
	"fmt"

	"github.com/nhle/bidboard/internal/model"
)

// leadsPageSize is how many leads are inspected when counting unviewed
// missions.
const leadsPageSize = 100

// Backend is the subset of the API client the adapters read from.
type Backend interface {
	Notifications(ctx context.Context) ([]model.Notification, error)
	Conversations(ctx context.Context) ([]model.Conversation, error)
	AcceptedBids(ctx context.Context) ([]model.AcceptedBid, error)
	Leads(ctx context.Context, page, limit int) ([]model.Mission, error)
	RecentBids(ctx context.Context) ([]model.Bid, error)
}

// CountSource derives one badge count from the backend.
type CountSource interface {
	// Bucket returns the badge this source feeds.
	Bucket() model.Bucket

	// Count fetches and derives the current value. Implementations never
	// return a negative count.
	Count(ctx context.Context) (int, error)
}

// ForRole returns the adapters that make up the badge record for role.
func ForRole(role model.Role, b Backend) ([]CountSource, error) {
	switch role {
	case model.RoleHomeowner:
		return []CountSource{
			UnreadNotifications(b, model.BucketDashboard, model.NotificationNewBid),
			UnreadMessages(b),
			PendingReviews(b),
		}, nil
	case model.RoleContractor:
		return []CountSource{
			UnviewedLeads(b),
			UnreadNotifications(b, model.BucketReviews, model.NotificationNewReview),
			UnreadMessages(b),
			UnviewedBids(b),
		}, nil
	default:
		return nil, fmt.Errorf("no badge sources for role %q", role)
	}
}

// countFunc adapts a plain function to CountSource.
type countFunc struct {
	bucket model.Bucket
	fn     func(ctx context.Context) (int, error)
}

func (c countFunc) Bucket() model.Bucket {
	return c.bucket
}

func (c countFunc) Count(ctx context.Context) (int, error) {
	n, err := c.fn(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", c.bucket, err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// UnreadNotifications counts unread notifications of type t into bucket.
func UnreadNotifications(b Backend, bucket model.Bucket, t model.NotificationType) CountSource {
	return countFunc{
		bucket: bucket,
		fn: func(ctx context.Context) (int, error) {
			list, err := b.Notifications(ctx)
			if err != nil {
				return 0, err
			}
			return model.CountUnread(list, t), nil
		},
	}
}

// UnreadMessages sums unread_count across all conversations.
func UnreadMessages(b Backend) CountSource {
	return countFunc{
		bucket: model.BucketMessages,
		fn: func(ctx context.Context) (int, error) {
			convs, err := b.Conversations(ctx)
			if err != nil {
				return 0, err
			}
			total := 0
			for _, c := range convs {
				if c.UnreadCount > 0 {
					total += int(c.UnreadCount)
				}
			}
			return total, nil
		},
	}
}

// PendingReviews counts accepted bids the homeowner has not reviewed.
func PendingReviews(b Backend) CountSource {
	return countFunc{
		bucket: model.BucketPendingReviews,
		fn: func(ctx context.Context) (int, error) {
			bids, err := b.AcceptedBids(ctx)
			if err != nil {
				return 0, err
			}
			n := 0
			for _, bid := range bids {
				if !bid.HasReviewed {
					n++
				}
			}
			return n, nil
		},
	}
}

// UnviewedLeads counts missions the contractor has not opened yet.
func UnviewedLeads(b Backend) CountSource {
	return countFunc{
		bucket: model.BucketDashboard,
		fn: func(ctx context.Context) (int, error) {
			missions, err := b.Leads(ctx, 1, leadsPageSize)
			if err != nil {
				return 0, err
			}
			n := 0
			for _, m := range missions {
				if m.Unviewed() {
					n++
				}
			}
			return n, nil
		},
	}
}

// UnviewedBids counts recent bids the contractor has not opened yet.
func UnviewedBids(b Backend) CountSource {
	return countFunc{
		bucket: model.BucketMyBids,
		fn: func(ctx context.Context) (int, error) {
			bids, err := b.RecentBids(ctx)
			if err != nil {
				return 0, err
			}
			n := 0
			for _, bid := range bids {
				if bid.Unviewed() {
					n++
				}
			}
			return n, nil
		},
	}
}
