// Package memory is a process-local repository backend used when no database
// is configured and by the tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"helpdesk/internal/models"
	"helpdesk/internal/repository"
)

type userRow struct {
	models.User
	hash string
}

type Store struct {
	mu         sync.RWMutex
	users      []userRow
	tickets    []models.Ticket // raw rows, names filled on read
	comments   []models.TicketComment
	statuses   []models.Status
	priorities []models.Priority
	seq        int64
	now        func() time.Time
}

func New() *Store {
	s := &Store{now: time.Now}
	for _, n := range repository.DefaultStatuses {
		s.statuses = append(s.statuses, models.Status{ID: s.next(), Name: n})
	}
	for _, n := range repository.DefaultPriorities {
		s.priorities = append(s.priorities, models.Priority{ID: s.next(), Name: n})
	}
	return s
}

// Repos exposes the store through every repository interface.
func (s *Store) Repos() repository.Repos {
	return repository.Repos{Tickets: s, Users: (*users)(s), Catalog: (*catalog)(s)}
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// ----------------------------------------------------------------------------
// tickets
// ----------------------------------------------------------------------------

func (s *Store) List(_ context.Context, f repository.TicketFilter) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Ticket{}
	// newest first, like the SQL backend
	for i := len(s.tickets) - 1; i >= 0; i-- {
		t := s.tickets[i]
		if f.Match(t.CreatedBy, t.AssignedTo, t.StatusID) {
			out = append(out, s.denormalize(t))
		}
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.ticketIndex(id)
	if i < 0 {
		return nil, nil
	}
	t := s.denormalize(s.tickets[i])
	return &t, nil
}

func (s *Store) Create(_ context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.StatusID == 0 && len(s.statuses) > 0 {
		t.StatusID = s.statuses[0].ID
	}
	t.ID = s.next()
	t.CreatedAt = s.now().UTC()
	s.tickets = append(s.tickets, *t)
	*t = s.denormalize(*t)
	return nil
}

func (s *Store) Update(_ context.Context, id int64, p models.TicketPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ticketIndex(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	t := &s.tickets[i]
	if p.StatusID != nil {
		t.StatusID = *p.StatusID
	}
	if p.PriorityID != nil {
		t.PriorityID = *p.PriorityID
	}
	if p.AssignedTo != nil {
		v := *p.AssignedTo
		t.AssignedTo = &v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ticketIndex(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.tickets = slices.Delete(s.tickets, i, i+1)
	s.comments = slices.DeleteFunc(s.comments, func(c models.TicketComment) bool { return c.TicketID == id })
	return nil
}

func (s *Store) ListComments(_ context.Context, ticketID int64) ([]models.TicketComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.TicketComment{}
	for _, c := range s.comments {
		if c.TicketID == ticketID {
			c.AuthorName = s.userName(c.AuthorID)
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) AddComment(_ context.Context, ticketID, authorID int64, content string) (*models.TicketComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticketIndex(ticketID) < 0 {
		return nil, repository.ErrNotFound
	}
	c := models.TicketComment{
		ID:        s.next(),
		TicketID:  ticketID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	s.comments = append(s.comments, c)
	c.AuthorName = s.userName(authorID)
	return &c, nil
}

func (s *Store) ticketIndex(id int64) int {
	return slices.IndexFunc(s.tickets, func(t models.Ticket) bool { return t.ID == id })
}

// denormalize fills the *_name columns the SQL backend gets from joins.
func (s *Store) denormalize(t models.Ticket) models.Ticket {
	t.StatusName = ""
	for _, st := range s.statuses {
		if st.ID == t.StatusID {
			t.StatusName = st.Name
		}
	}
	t.CreatedByName = s.userName(t.CreatedBy)
	t.AssignedToName = ""
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		t.AssignedTo = &v
		t.AssignedToName = s.userName(v)
	}
	return t
}

func (s *Store) userName(id int64) string {
	for _, u := range s.users {
		if u.ID == id {
			return u.Name
		}
	}
	return ""
}

// ----------------------------------------------------------------------------
// users
// ----------------------------------------------------------------------------

type users Store

func (u *users) Create(_ context.Context, email, name string, role models.Role, passwordHash string) (*models.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.users {
		if strings.EqualFold(r.Email, email) {
			return nil, repository.ErrDuplicateEmail
		}
	}
	row := userRow{User: models.User{ID: s.next(), Name: name, Email: email, Role: role}, hash: passwordHash}
	s.users = append(s.users, row)
	out := row.User
	return &out, nil
}

func (u *users) GetByEmail(_ context.Context, email string) (*models.User, string, error) {
	s := (*Store)(u)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.users {
		if strings.EqualFold(r.Email, email) {
			out := r.User
			return &out, r.hash, nil
		}
	}
	return nil, "", nil
}

func (u *users) GetByID(_ context.Context, id int64) (*models.User, error) {
	s := (*Store)(u)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.users {
		if r.ID == id {
			out := r.User
			return &out, nil
		}
	}
	return nil, nil
}

func (u *users) List(_ context.Context) ([]models.User, error) {
	s := (*Store)(u)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, r := range s.users {
		out = append(out, r.User)
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// catalog
// ----------------------------------------------------------------------------

type catalog Store

func (c *catalog) Statuses(context.Context) ([]models.Status, error) {
	s := (*Store)(c)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.statuses), nil
}

func (c *catalog) CreateStatus(_ context.Context, name string) (*models.Status, error) {
	s := (*Store)(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.Status{ID: s.next(), Name: name}
	s.statuses = append(s.statuses, st)
	return &st, nil
}

func (c *catalog) Priorities(context.Context) ([]models.Priority, error) {
	s := (*Store)(c)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.priorities), nil
}

func (c *catalog) CreatePriority(_ context.Context, name string) (*models.Priority, error) {
	s := (*Store)(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Priority{ID: s.next(), Name: name}
	s.priorities = append(s.priorities, p)
	return &p, nil
}
