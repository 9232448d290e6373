package repository

import (
	"context"
	"errors"

	"helpdesk/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// TicketRepository lookups return (nil, nil) when the row does not exist.
type TicketRepository interface {
	List(ctx context.Context, f TicketFilter) ([]models.Ticket, error)
	Get(ctx context.Context, id int64) (*models.Ticket, error)
	Create(ctx context.Context, t *models.Ticket) error
	Update(ctx context.Context, id int64, p models.TicketPatch) error
	Delete(ctx context.Context, id int64) error
	ListComments(ctx context.Context, ticketID int64) ([]models.TicketComment, error)
	AddComment(ctx context.Context, ticketID, authorID int64, content string) (*models.TicketComment, error)
}

type UserRepository interface {
	Create(ctx context.Context, email, name string, role models.Role, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, string /*passwordHash*/, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type CatalogRepository interface {
	Statuses(ctx context.Context) ([]models.Status, error)
	CreateStatus(ctx context.Context, name string) (*models.Status, error)
	Priorities(ctx context.Context) ([]models.Priority, error)
	CreatePriority(ctx context.Context, name string) (*models.Priority, error)
}

// Repos bundles one backend's repositories.
type Repos struct {
	Tickets TicketRepository
	Users   UserRepository
	Catalog CatalogRepository
	// Ping reports backend reachability for /healthz; nil means always up.
	Ping func(ctx context.Context) error
}

// Default catalog rows every fresh backend starts with.
var (
	DefaultStatuses   = []string{"open", "in progress", "closed"}
	DefaultPriorities = []string{"low", "medium", "high"}
)
