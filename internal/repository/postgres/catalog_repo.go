package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"helpdesk/internal/models"
	"helpdesk/internal/repository"
)

type CatalogRepo struct{ db *pgxpool.Pool }

func NewCatalogRepo(db *pgxpool.Pool) repository.CatalogRepository { return &CatalogRepo{db: db} }

func (r *CatalogRepo) Statuses(ctx context.Context) ([]models.Status, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Status{}
	for rows.Next() {
		var s models.Status
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateStatus(ctx context.Context, name string) (*models.Status, error) {
	var s models.Status
	err := r.db.QueryRow(ctx, `INSERT INTO statuses (name) VALUES ($1) RETURNING id, name`, name).Scan(&s.ID, &s.Name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CatalogRepo) Priorities(ctx context.Context) ([]models.Priority, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM priorities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Priority{}
	for rows.Next() {
		var p models.Priority
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreatePriority(ctx context.Context, name string) (*models.Priority, error) {
	var p models.Priority
	err := r.db.QueryRow(ctx, `INSERT INTO priorities (name) VALUES ($1) RETURNING id, name`, name).Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Repos wires the postgres repositories to one pool.
func Repos(db *pgxpool.Pool) repository.Repos {
	return repository.Repos{
		Tickets: NewTicketRepo(db),
		Users:   NewUserRepo(db),
		Catalog: NewCatalogRepo(db),
		Ping:    db.Ping,
	}
}
