package model

// Role identifies which side of the marketplace a user is on.
type Role string

const (
	RoleHomeowner  Role = "homeowner"
	RoleContractor Role = "contractor"
)

// Valid reports whether r is one of the known dashboard roles.
func (r Role) Valid() bool {
	return r == RoleHomeowner || r == RoleContractor
}

// DashboardRoute returns the dashboard path for the role. Visiting it
// clears the dashboard badge.
func (r Role) DashboardRoute() string {
	return "/dashboard/" + string(r)
}

// MessagesRoute returns the messages path for the role.
func (r Role) MessagesRoute() string {
	return "/dashboard/" + string(r) + "/messages"
}

// User is the authenticated account as returned by the profile endpoint.
type User struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Role          Role   `json:"role"`
	PhoneVerified bool   `json:"phone_verified,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
}

// DisplayName returns the best human-readable label for the user.
func (u User) DisplayName() string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.CompanyName != "":
		return u.CompanyName
	case u.Email != "":
		return u.Email
	default:
		return "user"
	}
}
