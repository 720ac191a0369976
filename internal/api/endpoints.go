package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhle/bidboard/internal/model"
)

// Notifications returns the user's inbox.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/api/notifications", &raw); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	return decodeList[model.Notification](raw, "notifications")
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/notifications/%d/mark-read", id)
	if err := c.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// MarkNotificationsViewed marks the whole inbox as viewed.
func (c *Client) MarkNotificationsViewed(ctx context.Context) error {
	if err := c.Put(ctx, "/api/notifications/mark-viewed", nil, nil); err != nil {
		return fmt.Errorf("marking notifications viewed: %w", err)
	}
	return nil
}

// ClearNotifications deletes every notification server-side.
func (c *Client) ClearNotifications(ctx context.Context) error {
	if err := c.Delete(ctx, "/api/notifications/clear-all", nil); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// Conversations returns the user's message threads.
func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/api/conversations", &raw); err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}
	return decodeList[model.Conversation](raw, "conversations")
}

// AcceptedBids returns the homeowner's accepted bids.
func (c *Client) AcceptedBids(ctx context.Context) ([]model.AcceptedBid, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/api/homeowner/accepted-bids", &raw); err != nil {
		return nil, fmt.Errorf("fetching accepted bids: %w", err)
	}
	return decodeList[model.AcceptedBid](raw, "bids", "accepted_bids")
}

// Leads returns one page of missions available to the contractor.
func (c *Client) Leads(ctx context.Context, page, limit int) ([]model.Mission, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := c.Get(ctx, "/api/leads?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("fetching leads: %w", err)
	}
	return decodeList[model.Mission](raw, "leads", "missions")
}

// RecentBids returns the contractor's recent bids.
func (c *Client) RecentBids(ctx context.Context) ([]model.Bid, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/api/contractor/recent-bids", &raw); err != nil {
		return nil, fmt.Errorf("fetching recent bids: %w", err)
	}
	return decodeList[model.Bid](raw, "bids")
}

// MarkMissionViewed records that the contractor opened the mission.
func (c *Client) MarkMissionViewed(ctx context.Context, missionID int64) error {
	path := fmt.Sprintf("/api/missions/%d/mark-viewed", missionID)
	if err := c.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking mission %d viewed: %w", missionID, err)
	}
	return nil
}

// Profile returns the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Get(ctx, "/api/users/profile", &user); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &user, nil
}

// Login exchanges credentials for tokens. It does not touch the
// client's TokenStore; callers persist the result.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/users/login", req, &out, false); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("logging in: response missing token")
	}
	if out.User.ID == 0 {
		return nil, fmt.Errorf("logging in: response missing user data")
	}
	return &out, nil
}
