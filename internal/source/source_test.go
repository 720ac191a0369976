package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/source"
)

type fakeBackend struct {
	notifications []model.Notification
	conversations []model.Conversation
	acceptedBids  []model.AcceptedBid
	leads         []model.Mission
	recentBids    []model.Bid
	err           error
}

func (f *fakeBackend) Notifications(context.Context) ([]model.Notification, error) {
	return f.notifications, f.err
}

func (f *fakeBackend) Conversations(context.Context) ([]model.Conversation, error) {
	return f.conversations, f.err
}

func (f *fakeBackend) AcceptedBids(context.Context) ([]model.AcceptedBid, error) {
	return f.acceptedBids, f.err
}

func (f *fakeBackend) Leads(context.Context, int, int) ([]model.Mission, error) {
	return f.leads, f.err
}

func (f *fakeBackend) RecentBids(context.Context) ([]model.Bid, error) {
	return f.recentBids, f.err
}

func countsFor(t *testing.T, role model.Role, b source.Backend) map[model.Bucket]int {
	t.Helper()

	sources, err := source.ForRole(role, b)
	require.NoError(t, err)

	out := make(map[model.Bucket]int)
	for _, src := range sources {
		n, err := src.Count(context.Background())
		require.NoError(t, err)
		out[src.Bucket()] = n
	}
	return out
}

func TestHomeownerSources(t *testing.T) {
	backend := &fakeBackend{
		notifications: []model.Notification{
			{ID: 1, Type: model.NotificationNewBid},
			{ID: 2, Type: model.NotificationNewBid},
			{ID: 3, Type: model.NotificationNewBid, IsRead: true},
			{ID: 4, Type: model.NotificationNewReview},
		},
		conversations: []model.Conversation{
			{ID: 1, UnreadCount: 2},
			{ID: 2, UnreadCount: 0},
			{ID: 3, UnreadCount: 5},
		},
		acceptedBids: []model.AcceptedBid{
			{ID: 1, HasReviewed: false},
			{ID: 2, HasReviewed: true},
		},
	}

	require.Equal(t, map[model.Bucket]int{
		model.BucketDashboard:      2,
		model.BucketMessages:       7,
		model.BucketPendingReviews: 1,
	}, countsFor(t, model.RoleHomeowner, backend))
}

func TestContractorSources(t *testing.T) {
	backend := &fakeBackend{
		notifications: []model.Notification{
			{ID: 1, Type: model.NotificationNewReview},
			{ID: 2, Type: model.NotificationNewReview},
			{ID: 3, Type: model.NotificationNewReview},
			{ID: 4, Type: model.NotificationNewBid},
		},
		conversations: []model.Conversation{{ID: 1, UnreadCount: 1}},
		leads: []model.Mission{
			{ID: 1, ViewedByContractor: model.BoolPtr(false)},
			{ID: 2, ViewedByContractor: model.BoolPtr(true)},
			{ID: 3},
		},
		recentBids: []model.Bid{
			{ID: 1, ViewedByContractor: model.BoolPtr(false)},
			{ID: 2, ViewedByContractor: model.BoolPtr(false)},
		},
	}

	require.Equal(t, map[model.Bucket]int{
		model.BucketDashboard: 1,
		model.BucketReviews:   3,
		model.BucketMessages:  1,
		model.BucketMyBids:    2,
	}, countsFor(t, model.RoleContractor, backend))
}

func TestUnknownRole(t *testing.T) {
	_, err := source.ForRole(model.Role("admin"), &fakeBackend{})
	require.Error(t, err)
}

func TestSourceErrorsAreWrapped(t *testing.T) {
	boom := errors.New("network down")
	src := source.UnreadMessages(&fakeBackend{err: boom})

	n, err := src.Count(context.Background())
	require.ErrorIs(t, err, boom)
	require.Zero(t, n)
}

func TestUnviewedLeadsFromBareArrayResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/leads", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "viewed_by_contractor": false},
			{"id": 2, "viewed_by_contractor": false},
			{"id": 3, "viewed_by_contractor": true}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, &api.StaticTokens{Access: "tok"})
	n, err := source.UnviewedLeads(client).Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

type countingBackend struct {
	fakeBackend
	notificationCalls int
}

func (c *countingBackend) Notifications(ctx context.Context) ([]model.Notification, error) {
	c.notificationCalls++
	return c.fakeBackend.Notifications(ctx)
}

func TestScopeFetchesNotificationsOnce(t *testing.T) {
	backend := &countingBackend{fakeBackend: fakeBackend{
		notifications: []model.Notification{
			{ID: 1, Type: model.NotificationNewReview},
			{ID: 2, Type: model.NotificationNewBid},
		},
	}}

	scoped := source.Scope(backend)
	reviews := source.UnreadNotifications(scoped, model.BucketReviews, model.NotificationNewReview)
	bids := source.UnreadNotifications(scoped, model.BucketDashboard, model.NotificationNewBid)

	n, err := reviews.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = bids.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Equal(t, 1, backend.notificationCalls)
}
