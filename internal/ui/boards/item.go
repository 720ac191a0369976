package boards

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/theme"
)

// MissionItem wraps a lead for a bubbles/list.
type MissionItem struct {
	Mission model.Mission
}

// FilterValue returns the string used for fuzzy filtering.
func (i MissionItem) FilterValue() string { return i.Mission.Title }

// BidItem wraps a bid for a bubbles/list.
type BidItem struct {
	Bid model.Bid
}

// FilterValue returns the string used for fuzzy filtering.
func (i BidItem) FilterValue() string { return i.Bid.MissionTitle }

// ItemDelegate renders missions and bids one per line.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var line string
	switch it := item.(type) {
	case MissionItem:
		line = renderMission(it.Mission)
	case BidItem:
		line = renderBid(it.Bid)
	default:
		return
	}

	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

func renderMission(mission model.Mission) string {
	marker := " "
	title := theme.DimmedStyle.Render(mission.Title)
	if mission.Unviewed() {
		marker = "●"
		title = theme.UnreadStyle.Render(mission.Title)
	}

	parts := []string{marker, title}
	if mission.Service != "" {
		parts = append(parts, theme.DimmedStyle.Render(mission.Service))
	}
	if mission.DistanceKM != nil {
		parts = append(parts, theme.DimmedStyle.Render(humanize.FtoaWithDigits(*mission.DistanceKM, 1)+" km"))
	}
	parts = append(parts, theme.DimmedStyle.Render(fmt.Sprintf("%d bids", mission.BidCount)))
	if mission.HasBid {
		parts = append(parts, theme.BidStatusStyle(mission.MyBidStatus).Render("bid "+mission.MyBidStatus))
	}
	parts = append(parts, relative(mission.CreatedAt))
	return strings.Join(parts, " ")
}

func renderBid(bid model.Bid) string {
	marker := " "
	title := theme.DimmedStyle.Render(bid.MissionTitle)
	if bid.Unviewed() {
		marker = "●"
		title = theme.UnreadStyle.Render(bid.MissionTitle)
	}

	return strings.Join([]string{
		marker,
		title,
		theme.BidStatusStyle(bid.Status).Render(bid.Status),
		theme.DimmedStyle.Render("$" + humanize.CommafWithDigits(bid.Quote, 2)),
		relative(bid.CreatedAt),
	}, " ")
}

func relative(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return theme.DimmedStyle.Render(humanize.Time(t))
}
