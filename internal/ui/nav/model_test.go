package nav_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/ui/nav"
)

func TestRoutesFor(t *testing.T) {
	home := nav.RoutesFor(model.RoleHomeowner)
	require.Equal(t, "/dashboard/homeowner", home[0].Path)
	require.Equal(t, model.BucketPendingReviews, home[1].Bucket)

	pro := nav.RoutesFor(model.RoleContractor)
	require.Equal(t, "/dashboard/contractor", pro[0].Path)

	var buckets []model.Bucket
	for _, r := range pro {
		if r.Bucket != "" {
			buckets = append(buckets, r.Bucket)
		}
	}
	require.ElementsMatch(t, []model.Bucket{
		model.BucketDashboard, model.BucketMyBids, model.BucketReviews, model.BucketMessages,
	}, buckets)

	for _, r := range append(home, pro...) {
		if r.Name == nav.RouteMessages {
			require.Contains(t, []string{
				model.RoleHomeowner.MessagesRoute(), model.RoleContractor.MessagesRoute(),
			}, r.Path)
		}
	}
}

func TestNextPrevWrap(t *testing.T) {
	m := nav.New(model.RoleHomeowner)
	require.Equal(t, nav.RouteDashboard, m.Active().Name)

	require.Equal(t, nav.RouteSettings, m.Prev().Name)
	require.Equal(t, nav.RouteDashboard, m.Next().Name)

	r, ok := m.Select(nav.RouteMessages)
	require.True(t, ok)
	require.Equal(t, nav.RouteMessages, r.Name)

	_, ok = m.Select(nav.RouteBids)
	require.False(t, ok)
	require.Equal(t, nav.RouteMessages, m.Active().Name)
}

func TestBadgeText(t *testing.T) {
	require.Empty(t, nav.BadgeText(0))
	require.Equal(t, "7", nav.BadgeText(7))
	require.Equal(t, "99+", nav.BadgeText(120))
}

func TestViewShowsBadges(t *testing.T) {
	m := nav.New(model.RoleContractor)
	m.SetCounts(model.NotificationCounts{MyBids: 3})

	view := m.View()
	require.Contains(t, view, "My Bids")
	require.Contains(t, view, "3")
}
