package model

import "time"

// NotificationType is the server-side category of an inbox entry.
type NotificationType string

const (
	NotificationNewBid        NotificationType = "new_bid"
	NotificationNewReview     NotificationType = "new_review"
	NotificationPendingReview NotificationType = "pending_review"
	NotificationBidAccepted   NotificationType = "bid_accepted"
	NotificationNewMessage    NotificationType = "new_message"
)

// Notification represents one entry in the user's inbox.
type Notification struct {
	// ID is the server-assigned identifier.
	ID int64 `json:"id" db:"id"`

	// Type selects which badge bucket the notification feeds.
	Type NotificationType `json:"type" db:"type"`

	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	// IsRead only ever transitions from false to true.
	IsRead bool `json:"is_read" db:"is_read"`

	// MissionID links the notification to a mission, when relevant.
	MissionID *int64 `json:"mission_id,omitempty" db:"mission_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BucketFor returns the badge bucket that an unread notification of the
// given type contributes to, or false if it does not feed any bucket.
func BucketFor(t NotificationType) (Bucket, bool) {
	switch t {
	case NotificationNewReview:
		return BucketReviews, true
	case NotificationNewBid:
		return BucketDashboard, true
	case NotificationPendingReview:
		return BucketPendingReviews, true
	default:
		return "", false
	}
}

// CountUnread returns the number of unread notifications of type t.
func CountUnread(list []Notification, t NotificationType) int {
	n := 0
	for _, item := range list {
		if item.Type == t && !item.IsRead {
			n++
		}
	}
	return n
}
