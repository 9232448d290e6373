// Package authz is the single place that maps (role, ownership, assignment)
// to permitted actions. Every screen and mutation asks it; nothing else
// compares roles.
package authz

import (
	"strings"

	"helpdesk/internal/models"
)

// ClosedStatus is the status name that stops further comments.
const ClosedStatus = "closed"

func hasRole(u *models.User, roles ...models.Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func CanViewTicket(u *models.User, t models.Ticket) bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case models.RoleAdmin:
		return true
	case models.RoleAgent:
		return t.IsAssignedTo(u.ID)
	case models.RoleCustomer:
		return t.CreatedBy == u.ID
	}
	return false
}

func CanCreateTicket(u *models.User) bool { return hasRole(u, models.RoleCustomer) }

func CanComment(u *models.User, t models.Ticket) bool {
	return CanViewTicket(u, t) && !IsClosed(t)
}

// IsClosed compares the denormalized status name case-insensitively.
func IsClosed(t models.Ticket) bool {
	return strings.EqualFold(strings.TrimSpace(t.StatusName), ClosedStatus)
}

func CanMutateStatus(u *models.User) bool { return hasRole(u, models.RoleAgent, models.RoleAdmin) }
func CanAssign(u *models.User) bool       { return hasRole(u, models.RoleAdmin) }
func CanSetPriority(u *models.User) bool  { return hasRole(u, models.RoleAdmin) }
func CanDeleteTicket(u *models.User) bool { return hasRole(u, models.RoleAdmin) }

// CanManageCatalog covers creating statuses and priorities.
func CanManageCatalog(u *models.User) bool { return hasRole(u, models.RoleAdmin) }

// CanManageUsers covers listing and creating users.
func CanManageUsers(u *models.User) bool { return hasRole(u, models.RoleAdmin) }

// CanUpdate checks every field the patch touches.
func CanUpdate(u *models.User, p models.TicketPatch) bool {
	if p.Empty() {
		return false
	}
	if p.StatusID != nil && !CanMutateStatus(u) {
		return false
	}
	if p.PriorityID != nil && !CanSetPriority(u) {
		return false
	}
	if p.AssignedTo != nil && !CanAssign(u) {
		return false
	}
	return true
}

// Visible filters tickets down to what u may see, preserving order.
func Visible(u *models.User, tickets []models.Ticket) []models.Ticket {
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if CanViewTicket(u, t) {
			out = append(out, t)
		}
	}
	return out
}
