// Package leads holds the contractor's page-level lists: available
// missions (leads) and recent bids. Opening an entry marks it viewed
// locally and announces it on the event bus.
package leads

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/model"
)

// MissionAPI loads leads and records mission views.
type MissionAPI interface {
	Leads(ctx context.Context, page, limit int) ([]model.Mission, error)
	MarkMissionViewed(ctx context.Context, missionID int64) error
}

// BidAPI loads the contractor's recent bids.
type BidAPI interface {
	RecentBids(ctx context.Context) ([]model.Bid, error)
}

const pageSize = 100

// LeadBoard is the state behind the leads list.
type LeadBoard struct {
	api MissionAPI
	bus *eventbus.Bus
	log *slog.Logger

	mu       sync.Mutex
	missions []model.Mission
}

// NewLeadBoard creates an empty board.
func NewLeadBoard(api MissionAPI, bus *eventbus.Bus, log *slog.Logger) *LeadBoard {
	if log == nil {
		log = slog.Default()
	}
	return &LeadBoard{api: api, bus: bus, log: log}
}

// Load fetches the first page of leads. On failure the previous list is
// kept and the error is returned for display.
func (b *LeadBoard) Load(ctx context.Context) error {
	missions, err := b.api.Leads(ctx, 1, pageSize)
	if err != nil {
		return fmt.Errorf("loading leads: %w", err)
	}

	b.mu.Lock()
	b.missions = missions
	b.mu.Unlock()
	return nil
}

// Missions returns a copy of the loaded leads.
func (b *LeadBoard) Missions() []model.Mission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Mission(nil), b.missions...)
}

// Unviewed returns how many loaded leads the contractor has not opened.
func (b *LeadBoard) Unviewed() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, m := range b.missions {
		if m.Unviewed() {
			n++
		}
	}
	return n
}

// Open marks the mission viewed locally, publishes MissionViewed, and
// records the view server-side. A server failure is logged and the local
// flag is kept.
func (b *LeadBoard) Open(ctx context.Context, missionID int64) (model.Mission, bool) {
	b.mu.Lock()
	idx := -1
	for i, m := range b.missions {
		if m.ID == missionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return model.Mission{}, false
	}
	b.missions[idx].ViewedByContractor = model.BoolPtr(true)
	mission := b.missions[idx]
	b.mu.Unlock()

	if b.bus != nil {
		b.bus.Publish(eventbus.MissionViewed{MissionID: missionID})
	}

	if err := b.api.MarkMissionViewed(ctx, missionID); err != nil {
		b.log.Warn("Failed to record mission view",
			slog.Int64("mission_id", missionID),
			slog.String("error", err.Error()))
	}

	return mission, true
}

// BidBoard is the state behind the "My Bids" list.
type BidBoard struct {
	api BidAPI
	bus *eventbus.Bus

	mu   sync.Mutex
	bids []model.Bid
}

// NewBidBoard creates an empty board.
func NewBidBoard(api BidAPI, bus *eventbus.Bus) *BidBoard {
	return &BidBoard{api: api, bus: bus}
}

// Load fetches the recent bids. Locally opened bids stay viewed.
func (b *BidBoard) Load(ctx context.Context) error {
	bids, err := b.api.RecentBids(ctx)
	if err != nil {
		return fmt.Errorf("loading bids: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	opened := make(map[int64]bool, len(b.bids))
	for _, bid := range b.bids {
		if bid.ViewedByContractor != nil && *bid.ViewedByContractor {
			opened[bid.ID] = true
		}
	}
	for i := range bids {
		if opened[bids[i].ID] {
			bids[i].ViewedByContractor = model.BoolPtr(true)
		}
	}
	b.bids = bids
	return nil
}

// Bids returns a copy of the loaded bids.
func (b *BidBoard) Bids() []model.Bid {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Bid(nil), b.bids...)
}

// Open marks the bid viewed and publishes BidViewed the first time an
// unviewed bid is opened.
func (b *BidBoard) Open(bidID int64) (model.Bid, bool) {
	b.mu.Lock()
	idx := -1
	for i, bid := range b.bids {
		if bid.ID == bidID {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return model.Bid{}, false
	}

	announce := b.bids[idx].Unviewed()
	b.bids[idx].ViewedByContractor = model.BoolPtr(true)
	bid := b.bids[idx]
	b.mu.Unlock()

	if announce && b.bus != nil {
		b.bus.Publish(eventbus.BidViewed{BidID: bidID})
	}
	return bid, true
}
