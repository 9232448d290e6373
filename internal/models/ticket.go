package models

import "time"

type Ticket struct {
	ID             int64     `json:"id"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description"`
	StatusID       int64     `json:"status_id"`
	StatusName     string    `json:"status_name"`
	PriorityID     int64     `json:"priority_id"`
	CreatedBy      int64     `json:"created_by"`
	CreatedByName  string    `json:"created_by_name"`
	AssignedTo     *int64    `json:"assigned_to"`
	AssignedToName string    `json:"assigned_to_name"`
	CreatedAt      time.Time `json:"created_at"`
}

func (t Ticket) Key() int64 { return t.ID }

// IsAssignedTo reports whether the ticket is assigned to the given user id.
func (t Ticket) IsAssignedTo(userID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// NewTicket is the body of POST /tickets.
type NewTicket struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	PriorityID  int64  `json:"priority_id" validate:"required,gt=0"`
}

// TicketPatch is the body of PATCH /tickets/:id. Nil fields are not sent.
type TicketPatch struct {
	StatusID   *int64 `json:"status_id,omitempty" validate:"omitempty,gt=0"`
	PriorityID *int64 `json:"priority_id,omitempty" validate:"omitempty,gt=0"`
	AssignedTo *int64 `json:"assigned_to,omitempty" validate:"omitempty,gt=0"`
}

func (p TicketPatch) Empty() bool {
	return p.StatusID == nil && p.PriorityID == nil && p.AssignedTo == nil
}

type TicketComment struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func (c TicketComment) Key() int64 { return c.ID }

type NewComment struct {
	Content string `json:"content" validate:"required"`
}
