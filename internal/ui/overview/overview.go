// Package overview renders the summary pages of the dashboard: the
// homeowner dashboard, reviews, messages, and settings.
package overview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/theme"
)

// Page describes one summary page.
type Page struct {
	Title string

	// Count is rendered as a large badge when Counted is set.
	Count   int
	Counted bool

	Blurb string

	// Notifications related to the page, newest first.
	Notifications []model.Notification

	// Details are key/value lines, rendered in order.
	Details [][2]string
}

const maxListed = 8

// Render draws p into a panel of the given size.
func Render(p Page, width, height int, now time.Time) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{titleStyle.Render(p.Title)}

	if p.Counted {
		count := theme.DimmedStyle.Render("nothing new")
		if p.Count > 0 {
			count = theme.BadgeStyle.Render(fmt.Sprintf("%d new", p.Count))
		}
		sections = append(sections, count)
	}

	if p.Blurb != "" {
		sections = append(sections, theme.HelpStyle.Render(p.Blurb))
	}

	if len(p.Details) > 0 {
		var b strings.Builder
		for _, kv := range p.Details {
			fmt.Fprintf(&b, "%s %s\n", theme.DimmedStyle.Render(kv[0]+":"), kv[1])
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if len(p.Notifications) > 0 {
		var b strings.Builder
		for i, n := range p.Notifications {
			if i == maxListed {
				fmt.Fprintf(&b, "%s\n", theme.DimmedStyle.Render(
					fmt.Sprintf("… and %d more (press b)", len(p.Notifications)-maxListed)))
				break
			}
			style := theme.DimmedStyle
			marker := " "
			if !n.IsRead {
				style = theme.UnreadStyle
				marker = "●"
			}
			fmt.Fprintf(&b, "%s %s %s\n", marker, style.Render(n.Title),
				theme.DimmedStyle.Render(humanize.RelTime(n.CreatedAt, now, "ago", "from now")))
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	return theme.PanelStyle.
		Width(max(width-4, 20)).
		Height(max(height-2, 5)).
		Render(strings.Join(sections, "\n\n"))
}

// FilterByType returns the notifications of type t.
func FilterByType(list []model.Notification, t model.NotificationType) []model.Notification {
	var out []model.Notification
	for _, n := range list {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
