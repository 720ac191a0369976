package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bid status values.
const (
	BidStatusPending     = "pending"
	BidStatusConsidering = "considering"
	BidStatusAccepted    = "accepted"
	BidStatusRejected    = "rejected"
)

// Mission is a job posting. Contractors see missions as leads.
type Mission struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Service  string `json:"service"`
	Priority string `json:"priority"`

	// ViewedByContractor is nil when the backend omits the field. Only an
	// explicit false counts as an unviewed lead.
	ViewedByContractor *bool `json:"viewed_by_contractor,omitempty"`

	BidCount    int       `json:"bid_count"`
	HasBid      bool      `json:"has_bid"`
	MyBidStatus string    `json:"my_bid_status,omitempty"`
	DistanceKM  *float64  `json:"distance_km,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Unviewed reports whether the mission is explicitly marked as not yet
// viewed by the contractor.
func (m Mission) Unviewed() bool {
	return m.ViewedByContractor != nil && !*m.ViewedByContractor
}

// Bid is a contractor's offer on a mission.
type Bid struct {
	ID           int64   `json:"id"`
	MissionID    int64   `json:"mission_id"`
	MissionTitle string  `json:"mission_title"`
	Quote        float64 `json:"quote"`
	Status       string  `json:"status"`

	// ViewedByContractor feeds the "My Bids" badge.
	ViewedByContractor *bool `json:"viewed_by_contractor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Unviewed reports whether the bid is explicitly marked as not yet viewed.
func (b Bid) Unviewed() bool {
	return b.ViewedByContractor != nil && !*b.ViewedByContractor
}

// AcceptedBid is a homeowner's accepted bid awaiting (or past) review.
type AcceptedBid struct {
	ID             int64  `json:"id"`
	MissionID      int64  `json:"mission_id"`
	MissionTitle   string `json:"mission_title"`
	ContractorName string `json:"contractor_name"`
	HasReviewed    bool   `json:"has_reviewed"`
}

// Conversation is one message thread with its unread counter.
type Conversation struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	UnreadCount FlexInt `json:"unread_count"`
}

// FlexInt decodes a JSON number, a numeric string, or null into an int.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	var n json.Number
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("decoding flexible int: %w", err)
		}
		if str == "" {
			*f = 0
			return nil
		}
		n = json.Number(str)
	} else {
		n = json.Number(s)
	}

	if i, err := n.Int64(); err == nil {
		*f = FlexInt(i)
		return nil
	}
	fl, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("decoding flexible int %q: %w", s, err)
	}
	*f = FlexInt(int(fl))
	return nil
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
