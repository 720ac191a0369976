package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/tests/testutil"
)

func TestDiffCountsListsOnlyChanges(t *testing.T) {
	before := model.NotificationCounts{Dashboard: 2, Messages: 1}
	after := model.NotificationCounts{Dashboard: 3, Messages: 1}

	changes := diffCounts(before, after, false)
	require.Len(t, changes, 1)
	require.Equal(t, model.BucketDashboard, changes[0].bucket)
	require.Equal(t, 2, changes[0].from)
	require.Equal(t, 3, changes[0].to)

	require.Len(t, diffCounts(before, after, true), len(model.AllBuckets))
}

func TestPrintInbox(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.ReplaceNotifications(ctx, 4, []model.Notification{
		{ID: 1, Type: model.NotificationNewBid, Title: "Roof repair bid", CreatedAt: now.Add(-time.Hour)},
		{ID: 2, Type: model.NotificationNewReview, Title: "Five stars", IsRead: true, CreatedAt: now.Add(-2 * time.Hour)},
	}))
	require.NoError(t, s.SaveSnapshot(ctx, 4, model.NotificationCounts{Dashboard: 1}, now.Add(-time.Minute)))

	var out bytes.Buffer
	require.NoError(t, printInbox(ctx, &out, s, 4, true, now))

	text := out.String()
	require.Contains(t, text, "Roof repair bid")
	require.NotContains(t, text, "Five stars")
	require.Contains(t, text, "1 minute ago")
}

func TestPrintInboxWithoutCache(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printInbox(context.Background(), &out, testutil.NewTestStore(t), 4, false, time.Now()))
	require.Contains(t, out.String(), "No badge counts cached yet")
	require.Contains(t, out.String(), "No notifications.")
}
