package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"helpdesk/internal/async"
	"helpdesk/internal/authz"
	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/validate"
)

var (
	opFetchTickets  = async.Op{Name: "tickets.fetchAll", FailMessage: "failed to load tickets"}
	opFetchTicket   = async.Op{Name: "tickets.fetchById", FailMessage: "failed to load ticket details"}
	opCreateTicket  = async.Op{Name: "tickets.create", FailMessage: "failed to create ticket"}
	opUpdateTicket  = async.Op{Name: "tickets.update", FailMessage: "failed to update ticket"}
	opRemoveTicket  = async.Op{Name: "tickets.remove", FailMessage: "failed to delete ticket"}
	opFetchComments = async.Op{Name: "comments.fetchAll", FailMessage: "failed to load ticket comments"}
	opPostComment   = async.Op{Name: "comments.post", FailMessage: "failed to add comment"}
)

func ticketPath(id int64) string { return fmt.Sprintf("/tickets/%d", id) }

// Tickets caches the ticket list, the ticket open in the detail view and its
// comments.
type Tickets struct {
	api  API
	who  Principal
	area *async.Area
	log  zerolog.Logger

	mu       sync.RWMutex
	list     []models.Ticket
	selected *models.Ticket
	viewing  int64 // ticket the detail view is showing, 0 when none
	comments []models.TicketComment
	version  uint64
	gen      uint64 // bumped by Reset; responses read under an older gen are dropped
}

func NewTickets(api API, who Principal, area *async.Area, log zerolog.Logger) *Tickets {
	return &Tickets{
		api:  api,
		who:  who,
		area: area,
		log:  log.With().Str("component", "tickets").Logger(),
	}
}

func (s *Tickets) Projection() async.Projection { return s.area.Projection() }
func (s *Tickets) ClearError()                  { s.area.ClearError() }

func (s *Tickets) List() []models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.list)
}

// Version changes whenever the list changes; derived views key on it.
func (s *Tickets) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Tickets) Selected() (models.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return models.Ticket{}, false
	}
	return *s.selected, true
}

func (s *Tickets) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *Tickets) Comments() []models.TicketComment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.comments)
}

// FetchAll replaces the whole list with the server's.
func (s *Tickets) FetchAll(ctx context.Context) ([]models.Ticket, error) {
	gen := s.generation()
	list, err := async.Run(ctx, s.area, opFetchTickets, func(ctx context.Context) ([]models.Ticket, error) {
		var out []models.Ticket
		err := s.api.Get(ctx, "/tickets", &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, errReset(opFetchTickets.Name)
	}
	s.list = dedupe(list)
	s.version++
	s.mu.Unlock()
	return clone(list), nil
}

// FetchByID opens a ticket in the detail view. A ticket the session user may
// not see is treated as denied and never stored.
func (s *Tickets) FetchByID(ctx context.Context, id int64) (models.Ticket, error) {
	gen := s.generation()
	s.open(id)
	t, err := async.Run(ctx, s.area, opFetchTicket, func(ctx context.Context) (models.Ticket, error) {
		var out models.Ticket
		if err := s.api.Get(ctx, ticketPath(id), &out); err != nil {
			return models.Ticket{}, err
		}
		if !authz.CanViewTicket(s.who.CurrentUser(), out) {
			return models.Ticket{}, failure.Denied(opFetchTicket.Name)
		}
		return out, nil
	})
	if err != nil {
		if failure.Is(err, failure.NotFound) {
			s.mu.Lock()
			if s.viewing == id {
				s.selected = nil
			}
			s.mu.Unlock()
		}
		return models.Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return models.Ticket{}, errReset(opFetchTicket.Name)
	}
	if s.viewing != id {
		s.log.Debug().Int64("ticket_id", id).Msg("dropping late ticket response")
		return t, nil
	}
	s.selected = &t
	if i := indexOf(s.list, id); i >= 0 {
		s.list[i] = t
		s.version++
	}
	return t, nil
}

func (s *Tickets) open(id int64) {
	s.mu.Lock()
	if s.viewing != id {
		s.viewing = id
		s.selected = nil
		s.comments = nil
	}
	s.mu.Unlock()
}

// ClearSelected is called when the detail view is left.
func (s *Tickets) ClearSelected() {
	s.mu.Lock()
	s.viewing = 0
	s.selected = nil
	s.comments = nil
	s.mu.Unlock()
}

func (s *Tickets) ClearComments() {
	s.mu.Lock()
	s.comments = nil
	s.mu.Unlock()
}

// Reset drops everything, e.g. after logout.
func (s *Tickets) Reset() {
	s.mu.Lock()
	s.list = nil
	s.viewing = 0
	s.selected = nil
	s.comments = nil
	s.version++
	s.gen++
	s.mu.Unlock()
	s.area.ClearError()
}

// Create posts a new ticket and puts the server's copy first in the list.
func (s *Tickets) Create(ctx context.Context, in models.NewTicket) (models.Ticket, error) {
	if !authz.CanCreateTicket(s.who.CurrentUser()) {
		return models.Ticket{}, failure.Denied(opCreateTicket.Name)
	}
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	if err := validate.Struct(opCreateTicket.Name, in); err != nil {
		return models.Ticket{}, err
	}

	gen := s.generation()
	t, err := async.Run(ctx, s.area, opCreateTicket, func(ctx context.Context) (models.Ticket, error) {
		var out models.Ticket
		err := s.api.Post(ctx, "/tickets", in, &out)
		return out, err
	})
	if err != nil {
		return models.Ticket{}, err
	}
	if t.ID == 0 {
		return models.Ticket{}, failure.New(failure.ServerFailure, opCreateTicket.Name, "server returned a ticket without id")
	}

	s.mu.Lock()
	if s.gen == gen {
		s.list = prependUnique(s.list, t)
		s.version++
	}
	s.mu.Unlock()
	return t, nil
}

// Update sends only the fields set in p and replaces the local record with the
// server's full response, so status_name never drifts from status_id.
func (s *Tickets) Update(ctx context.Context, id int64, p models.TicketPatch) (models.Ticket, error) {
	if p.Empty() {
		return models.Ticket{}, failure.New(failure.ValidationFailure, opUpdateTicket.Name, "nothing to update")
	}
	if !authz.CanUpdate(s.who.CurrentUser(), p) {
		return models.Ticket{}, failure.Denied(opUpdateTicket.Name)
	}
	if err := validate.Struct(opUpdateTicket.Name, p); err != nil {
		return models.Ticket{}, err
	}

	gen := s.generation()
	t, err := async.Run(ctx, s.area, opUpdateTicket, func(ctx context.Context) (models.Ticket, error) {
		var out models.Ticket
		err := s.api.Patch(ctx, ticketPath(id), p, &out)
		return out, err
	})
	if err != nil {
		return models.Ticket{}, err
	}
	if t.ID != id {
		return models.Ticket{}, failure.New(failure.ServerFailure, opUpdateTicket.Name, "server returned a different ticket")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return t, nil
	}
	if i := indexOf(s.list, id); i >= 0 {
		s.list[i] = t
		s.version++
	}
	if s.selected != nil && s.selected.ID == id {
		cp := t
		s.selected = &cp
	}
	return t, nil
}

func (s *Tickets) UpdateStatus(ctx context.Context, id, statusID int64) (models.Ticket, error) {
	return s.Update(ctx, id, models.TicketPatch{StatusID: &statusID})
}

func (s *Tickets) SetPriority(ctx context.Context, id, priorityID int64) (models.Ticket, error) {
	return s.Update(ctx, id, models.TicketPatch{PriorityID: &priorityID})
}

func (s *Tickets) Assign(ctx context.Context, id, userID int64) (models.Ticket, error) {
	return s.Update(ctx, id, models.TicketPatch{AssignedTo: &userID})
}

// Remove deletes on the server first; the local list is untouched on failure.
func (s *Tickets) Remove(ctx context.Context, id int64) error {
	if !authz.CanDeleteTicket(s.who.CurrentUser()) {
		return failure.Denied(opRemoveTicket.Name)
	}
	gen := s.generation()
	err := async.Exec(ctx, s.area, opRemoveTicket, func(ctx context.Context) error {
		return s.api.Delete(ctx, ticketPath(id))
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	s.list = removeID(s.list, id)
	s.version++
	if s.viewing == id {
		s.viewing = 0
		s.selected = nil
		s.comments = nil
	}
	return nil
}

// FetchComments replaces the comment list of the ticket being viewed.
func (s *Tickets) FetchComments(ctx context.Context, ticketID int64) ([]models.TicketComment, error) {
	gen := s.generation()
	s.open(ticketID)
	list, err := async.Run(ctx, s.area, opFetchComments, func(ctx context.Context) ([]models.TicketComment, error) {
		var out []models.TicketComment
		err := s.api.Get(ctx, ticketPath(ticketID)+"/comments", &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, errReset(opFetchComments.Name)
	}
	if s.viewing != ticketID {
		s.log.Debug().Int64("ticket_id", ticketID).Msg("dropping late comments response")
		return list, nil
	}
	s.comments = dedupe(list)
	return clone(list), nil
}

// PostComment appends the server's comment to the end of the list.
func (s *Tickets) PostComment(ctx context.Context, ticketID int64, content string) (models.TicketComment, error) {
	t, ok := s.lookup(ticketID)
	if !ok {
		return models.TicketComment{}, failure.New(failure.NotFound, opPostComment.Name, "ticket is not loaded")
	}
	if !authz.CanComment(s.who.CurrentUser(), t) {
		return models.TicketComment{}, failure.Denied(opPostComment.Name)
	}
	content = strings.TrimSpace(content)
	if err := validate.Required(opPostComment.Name, "content", content); err != nil {
		return models.TicketComment{}, err
	}

	gen := s.generation()
	c, err := async.Run(ctx, s.area, opPostComment, func(ctx context.Context) (models.TicketComment, error) {
		var out models.TicketComment
		err := s.api.Post(ctx, ticketPath(ticketID)+"/comments", models.NewComment{Content: content}, &out)
		return out, err
	})
	if err != nil {
		return models.TicketComment{}, err
	}

	s.mu.Lock()
	if s.gen == gen && s.viewing == ticketID {
		s.comments = appendUnique(s.comments, c)
	}
	s.mu.Unlock()
	return c, nil
}

func (s *Tickets) lookup(id int64) (models.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected != nil && s.selected.ID == id {
		return *s.selected, true
	}
	if i := indexOf(s.list, id); i >= 0 {
		return s.list[i], true
	}
	return models.Ticket{}, false
}
