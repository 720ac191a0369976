package model

// Bucket names one badge in the dashboard navigation.
type Bucket string

const (
	BucketDashboard      Bucket = "dashboard"
	BucketReviews        Bucket = "reviews"
	BucketMessages       Bucket = "messages"
	BucketPendingReviews Bucket = "pendingReviews"
	BucketMyBids         Bucket = "myBids"
)

// AllBuckets lists every badge bucket in navigation order.
var AllBuckets = []Bucket{
	BucketDashboard,
	BucketReviews,
	BucketMessages,
	BucketPendingReviews,
	BucketMyBids,
}

// NotificationCounts is the aggregate badge state rendered by the
// navigation. Every field is kept non-negative; use the methods below
// rather than writing fields directly.
type NotificationCounts struct {
	Dashboard      int `json:"dashboard"`
	Reviews        int `json:"reviews"`
	Messages       int `json:"messages"`
	PendingReviews int `json:"pendingReviews"`
	MyBids         int `json:"myBids"`
}

// Get returns the count for a bucket. Unknown buckets read as 0.
func (c NotificationCounts) Get(b Bucket) int {
	switch b {
	case BucketDashboard:
		return c.Dashboard
	case BucketReviews:
		return c.Reviews
	case BucketMessages:
		return c.Messages
	case BucketPendingReviews:
		return c.PendingReviews
	case BucketMyBids:
		return c.MyBids
	default:
		return 0
	}
}

// With returns a copy with bucket b set to n, floored at 0.
func (c NotificationCounts) With(b Bucket, n int) NotificationCounts {
	if n < 0 {
		n = 0
	}
	switch b {
	case BucketDashboard:
		c.Dashboard = n
	case BucketReviews:
		c.Reviews = n
	case BucketMessages:
		c.Messages = n
	case BucketPendingReviews:
		c.PendingReviews = n
	case BucketMyBids:
		c.MyBids = n
	}
	return c
}

// Decrement returns a copy with bucket b reduced by one, floored at 0.
func (c NotificationCounts) Decrement(b Bucket) NotificationCounts {
	return c.With(b, c.Get(b)-1)
}

// Clamp returns a copy with every negative field raised to 0.
func (c NotificationCounts) Clamp() NotificationCounts {
	for _, b := range AllBuckets {
		c = c.With(b, c.Get(b))
	}
	return c
}

// Total returns the sum of all buckets.
func (c NotificationCounts) Total() int {
	return c.Dashboard + c.Reviews + c.Messages + c.PendingReviews + c.MyBids
}

// IsZero reports whether every bucket is 0.
func (c NotificationCounts) IsZero() bool {
	return c == NotificationCounts{}
}
