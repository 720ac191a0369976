package nav

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/theme"
)

// Route is one page of the dashboard.
type Route struct {
	Name  string
	Label string
	Path  string

	// Bucket is the badge shown beside the entry, if any.
	Bucket model.Bucket
}

// Route names shared by both roles.
const (
	RouteDashboard = "dashboard"
	RouteMessages  = "messages"
	RouteReviews   = "reviews"
	RouteBids      = "bids"
	RouteSettings  = "settings"
)

// RoutesFor returns the navigation entries for role in display order.
func RoutesFor(role model.Role) []Route {
	base := "/dashboard/" + string(role)

	switch role {
	case model.RoleContractor:
		return []Route{
			{Name: RouteDashboard, Label: "Leads", Path: role.DashboardRoute(), Bucket: model.BucketDashboard},
			{Name: RouteBids, Label: "My Bids", Path: base + "/bids", Bucket: model.BucketMyBids},
			{Name: RouteReviews, Label: "Reviews", Path: base + "/reviews", Bucket: model.BucketReviews},
			{Name: RouteMessages, Label: "Messages", Path: role.MessagesRoute(), Bucket: model.BucketMessages},
			{Name: RouteSettings, Label: "Settings", Path: base + "/settings"},
		}
	default:
		return []Route{
			{Name: RouteDashboard, Label: "Dashboard", Path: role.DashboardRoute(), Bucket: model.BucketDashboard},
			{Name: RouteReviews, Label: "Pending Reviews", Path: base + "/reviews", Bucket: model.BucketPendingReviews},
			{Name: RouteMessages, Label: "Messages", Path: role.MessagesRoute(), Bucket: model.BucketMessages},
			{Name: RouteSettings, Label: "Settings", Path: base + "/settings"},
		}
	}
}

// Model is the sidebar navigation.
type Model struct {
	routes []Route
	active int
	counts model.NotificationCounts
}

// New creates the navigation for role with the dashboard selected.
func New(role model.Role) Model {
	return Model{routes: RoutesFor(role)}
}

// Routes returns the entries in display order.
func (m Model) Routes() []Route {
	return m.routes
}

// Active returns the selected route.
func (m Model) Active() Route {
	if len(m.routes) == 0 {
		return Route{}
	}
	return m.routes[m.active]
}

// Next selects the following route, wrapping around.
func (m *Model) Next() Route {
	if len(m.routes) > 0 {
		m.active = (m.active + 1) % len(m.routes)
	}
	return m.Active()
}

// Prev selects the preceding route, wrapping around.
func (m *Model) Prev() Route {
	if len(m.routes) > 0 {
		m.active = (m.active - 1 + len(m.routes)) % len(m.routes)
	}
	return m.Active()
}

// Select makes the route with the given name active.
func (m *Model) Select(name string) (Route, bool) {
	for i, r := range m.routes {
		if r.Name == name {
			m.active = i
			return r, true
		}
	}
	return m.Active(), false
}

// SetCounts updates the badges.
func (m *Model) SetCounts(c model.NotificationCounts) {
	m.counts = c
}

// BadgeText formats a count for display; zero renders as empty.
func BadgeText(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return fmt.Sprintf("%d", n)
	}
}

// View renders the sidebar entries with their badges.
func (m Model) View() string {
	var b strings.Builder
	for i, r := range m.routes {
		label := r.Label
		if r.Bucket != "" {
			if text := BadgeText(m.counts.Get(r.Bucket)); text != "" {
				label = lipgloss.JoinHorizontal(lipgloss.Top, label, " ", theme.BadgeStyle.Render(text))
			}
		}

		style := theme.NavItemStyle
		if i == m.active {
			style = theme.ActiveNavItemStyle
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
	}
	return b.String()
}
