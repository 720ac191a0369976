package leads_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/leads"
	"github.com/nhle/bidboard/internal/log"
	"github.com/nhle/bidboard/internal/model"
)

type fakeAPI struct {
	missions  []model.Mission
	bids      []model.Bid
	loadErr   error
	markErr   error
	marked    []int64
	leadsPage int
}

func (f *fakeAPI) Leads(_ context.Context, page, _ int) ([]model.Mission, error) {
	f.leadsPage = page
	return append([]model.Mission(nil), f.missions...), f.loadErr
}

func (f *fakeAPI) MarkMissionViewed(_ context.Context, id int64) error {
	f.marked = append(f.marked, id)
	return f.markErr
}

func (f *fakeAPI) RecentBids(context.Context) ([]model.Bid, error) {
	return append([]model.Bid(nil), f.bids...), f.loadErr
}

func TestOpenMissionFlipsPublishesAndPersists(t *testing.T) {
	api := &fakeAPI{
		missions: []model.Mission{
			{ID: 1, ViewedByContractor: model.BoolPtr(false)},
			{ID: 2, ViewedByContractor: model.BoolPtr(false)},
		},
		markErr: errors.New("offline"),
	}
	bus := eventbus.New(log.Discard())

	var seen []int64
	eventbus.Subscribe(bus, func(e eventbus.MissionViewed) { seen = append(seen, e.MissionID) })

	board := leads.NewLeadBoard(api, bus, log.Discard())
	require.NoError(t, board.Load(context.Background()))
	require.Equal(t, 1, api.leadsPage)
	require.Equal(t, 2, board.Unviewed())

	mission, ok := board.Open(context.Background(), 2)
	require.True(t, ok)
	require.False(t, mission.Unviewed())

	require.Equal(t, 1, board.Unviewed())
	require.Equal(t, []int64{2}, seen)
	require.Equal(t, []int64{2}, api.marked)
}

func TestOpenUnknownMission(t *testing.T) {
	board := leads.NewLeadBoard(&fakeAPI{}, nil, log.Discard())
	_, ok := board.Open(context.Background(), 42)
	require.False(t, ok)
}

func TestLeadLoadErrorKeepsList(t *testing.T) {
	api := &fakeAPI{missions: []model.Mission{{ID: 1}}}
	board := leads.NewLeadBoard(api, nil, log.Discard())
	require.NoError(t, board.Load(context.Background()))

	api.loadErr = errors.New("500")
	require.Error(t, board.Load(context.Background()))
	require.Len(t, board.Missions(), 1)
}

func TestOpenBidPublishesOnce(t *testing.T) {
	api := &fakeAPI{bids: []model.Bid{
		{ID: 10, ViewedByContractor: model.BoolPtr(false)},
		{ID: 11, ViewedByContractor: model.BoolPtr(true)},
	}}
	bus := eventbus.New(log.Discard())

	published := 0
	eventbus.Subscribe(bus, func(eventbus.BidViewed) { published++ })

	board := leads.NewBidBoard(api, bus)
	require.NoError(t, board.Load(context.Background()))

	_, ok := board.Open(10)
	require.True(t, ok)
	board.Open(10)
	board.Open(11)
	require.Equal(t, 1, published)

	// A reload before the server catches up keeps the bid viewed.
	require.NoError(t, board.Load(context.Background()))
	board.Open(10)
	require.Equal(t, 1, published)
	require.False(t, board.Bids()[0].Unviewed())
}
