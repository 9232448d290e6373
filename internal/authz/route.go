package authz

import "helpdesk/internal/models"

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Screen is a gated view and the roles allowed to open it.
type Screen struct {
	Path  string
	Roles []models.Role
}

var (
	allRoles = []models.Role{models.RoleCustomer, models.RoleAgent, models.RoleAdmin}

	ScreenDashboard    = Screen{Path: DashboardPath, Roles: allRoles}
	ScreenTickets      = Screen{Path: "/dashboard/tickets", Roles: allRoles}
	ScreenTicketDetail = Screen{Path: "/dashboard/tickets/:id", Roles: allRoles}
	ScreenNewTicket    = Screen{Path: "/dashboard/tickets/new", Roles: []models.Role{models.RoleCustomer}}
	ScreenUsers        = Screen{Path: "/dashboard/users", Roles: []models.Role{models.RoleAdmin}}
	ScreenCreateUser   = Screen{Path: "/dashboard/users/create", Roles: []models.Role{models.RoleAdmin}}
	ScreenCatalog      = Screen{Path: "/dashboard/createStatuses", Roles: []models.Role{models.RoleAdmin}}
)

// Screens lists every gated screen.
var Screens = []Screen{
	ScreenDashboard, ScreenTickets, ScreenTicketDetail, ScreenNewTicket,
	ScreenUsers, ScreenCreateUser, ScreenCatalog,
}

func (s Screen) Allows(u *models.User) bool { return hasRole(u, s.Roles...) }

// SessionView is the part of a session a route gate needs.
type SessionView interface {
	Initialized() bool
	Authenticated() bool
	CurrentUser() *models.User
}

type Outcome int

const (
	Render Outcome = iota
	Wait
	Redirect
)

type Decision struct {
	Outcome Outcome
	Target  string
}

// Check decides, before the screen renders, whether to show it, hold a
// loading state, or send the user elsewhere.
func Check(s SessionView, screen Screen) Decision {
	if !s.Initialized() {
		return Decision{Outcome: Wait}
	}
	if !s.Authenticated() {
		return Decision{Outcome: Redirect, Target: LoginPath}
	}
	if !screen.Allows(s.CurrentUser()) {
		return Decision{Outcome: Redirect, Target: DashboardPath}
	}
	return Decision{Outcome: Render}
}

// Navigator performs redirects.
type Navigator interface {
	Navigate(path string)
}

// Enforce applies d and reports whether the caller may render.
func Enforce(nav Navigator, d Decision) bool {
	switch d.Outcome {
	case Render:
		return true
	case Redirect:
		if nav != nil {
			nav.Navigate(d.Target)
		}
	}
	return false
}
