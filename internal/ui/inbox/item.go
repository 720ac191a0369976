package inbox

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

// NotificationItem wraps a model.Notification for a bubbles/list.
type NotificationItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string { return i.Notification.Title }

// ItemDelegate renders one notification per line.
type ItemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(NotificationItem)
	if !ok {
		return
	}
	n := ni.Notification

	marker := " "
	titleStyle := theme.DimmedStyle
	if !n.IsRead {
		marker = "●"
		titleStyle = theme.UnreadStyle
	}

	parts := []string{
		marker,
		theme.NotificationTypeStyle(string(n.Type)).Render(typeLabel(n.Type)),
		titleStyle.Render(n.Title),
	}
	if n.Message != "" {
		parts = append(parts, theme.DimmedStyle.Render(truncate(n.Message, 48)))
	}
	if !n.CreatedAt.IsZero() {
		parts = append(parts, theme.DimmedStyle.Render(humanize.RelTime(n.CreatedAt, d.clock(), "ago", "from now")))
	}
	line := strings.Join(parts, " ")

	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

func (d ItemDelegate) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

func typeLabel(t model.NotificationType) string {
	switch t {
	case model.NotificationNewBid:
		return "bid"
	case model.NotificationNewReview:
		return "review"
	case model.NotificationPendingReview:
		return "to review"
	case model.NotificationBidAccepted:
		return "accepted"
	case model.NotificationNewMessage:
		return "message"
	default:
		return string(t)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
