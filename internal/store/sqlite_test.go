package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/store"
	"github.com/nhle/bidboard/tests/testutil"
)

func inbox(base time.Time) []model.Notification {
	mission := int64(55)
	return []model.Notification{
		{ID: 1, Type: model.NotificationNewBid, Title: "New bid", CreatedAt: base},
		{ID: 2, Type: model.NotificationNewReview, Title: "New review", MissionID: &mission, CreatedAt: base.Add(time.Minute)},
		{ID: 3, Type: model.NotificationBidAccepted, Title: "Accepted", IsRead: true, CreatedAt: base.Add(2 * time.Minute)},
	}
}

func TestReplaceAndList(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.ReplaceNotifications(ctx, 1, inbox(base)))

	list, err := s.GetNotifications(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, int64(3), list[0].ID)
	require.Equal(t, model.NotificationNewReview, list[1].Type)
	require.NotNil(t, list[1].MissionID)
	require.Equal(t, int64(55), *list[1].MissionID)
	require.True(t, list[2].CreatedAt.Equal(base))

	unread, err := s.UnreadCount(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, unread)

	other, err := s.GetNotifications(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestReplaceNeverUnreadsAndPrunes(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	base := time.Now().UTC()

	require.NoError(t, s.ReplaceNotifications(ctx, 1, inbox(base)))
	require.NoError(t, s.MarkNotificationRead(ctx, 1, 1))

	// The server still reports 1 as unread and has dropped 3.
	fresh := inbox(base)[:2]
	require.NoError(t, s.ReplaceNotifications(ctx, 1, fresh))

	n, err := s.GetNotification(ctx, 1, 1)
	require.NoError(t, err)
	require.True(t, n.IsRead)

	_, err = s.GetNotification(ctx, 1, 3)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkAllAndClear(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceNotifications(ctx, 1, inbox(time.Now())))
	require.NoError(t, s.ReplaceNotifications(ctx, 2, inbox(time.Now())))

	require.NoError(t, s.MarkAllNotificationsRead(ctx, 1))
	unread, err := s.UnreadCount(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, unread)

	require.NoError(t, s.ClearNotifications(ctx, 1))
	list, err := s.GetNotifications(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, list)

	unread, err = s.UnreadCount(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, unread)
}

func TestReplaceWithEmptyListClears(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceNotifications(ctx, 1, inbox(time.Now())))
	require.NoError(t, s.ReplaceNotifications(ctx, 1, nil))

	list, err := s.GetNotifications(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, _, err := s.LastSnapshot(ctx, 1)
	require.ErrorIs(t, err, store.ErrNotFound)

	at := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	counts := model.NotificationCounts{Dashboard: 2, Messages: 1, MyBids: 4}
	require.NoError(t, s.SaveSnapshot(ctx, 1, counts, at))

	got, gotAt, err := s.LastSnapshot(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, counts, got)
	require.True(t, gotAt.Equal(at))

	require.NoError(t, s.SaveSnapshot(ctx, 1, model.NotificationCounts{}, at.Add(time.Minute)))
	got, _, err = s.LastSnapshot(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/inbox.db"

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceNotifications(ctx, 1, inbox(time.Now())))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	list, err := s.GetNotifications(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
}
