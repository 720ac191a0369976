package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/bidboard/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the local cache of each user's notification inbox and last
// known badge counts. Every method is scoped to a user id so that
// switching accounts never mixes inboxes.
type Store interface {
	// === Notifications ===

	// ReplaceNotifications makes list the user's cached inbox. Entries
	// already read locally stay read.
	ReplaceNotifications(ctx context.Context, userID int64, list []model.Notification) error
	GetNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	GetNotification(ctx context.Context, userID, id int64) (*model.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
	ClearNotifications(ctx context.Context, userID int64) error

	// === Badge snapshots ===

	SaveSnapshot(ctx context.Context, userID int64, counts model.NotificationCounts, at time.Time) error
	LastSnapshot(ctx context.Context, userID int64) (model.NotificationCounts, time.Time, error)

	Close() error
}
