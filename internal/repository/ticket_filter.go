package repository

// TicketFilter narrows List. Zero values mean "any".
type TicketFilter struct {
	CreatedBy  int64 // customers only see their own tickets
	AssignedTo int64 // agents only see tickets assigned to them
	StatusID   int64
}

func (f TicketFilter) Match(createdBy int64, assignedTo *int64, statusID int64) bool {
	if f.CreatedBy != 0 && createdBy != f.CreatedBy {
		return false
	}
	if f.AssignedTo != 0 && (assignedTo == nil || *assignedTo != f.AssignedTo) {
		return false
	}
	if f.StatusID != 0 && statusID != f.StatusID {
		return false
	}
	return true
}
