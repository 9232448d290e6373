package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"helpdesk/internal/config"
	"helpdesk/internal/repository"
)

func Open(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DBURL)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, pcfg)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         BIGSERIAL PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL CHECK (role IN ('customer', 'agent', 'admin')),
	password_h TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS statuses (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS priorities (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tickets (
	id          BIGSERIAL PRIMARY KEY,
	subject     TEXT NOT NULL,
	description TEXT NOT NULL,
	status_id   BIGINT NOT NULL REFERENCES statuses(id),
	priority_id BIGINT NOT NULL REFERENCES priorities(id),
	created_by  BIGINT NOT NULL REFERENCES users(id),
	assigned_to BIGINT REFERENCES users(id),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS ticket_comments (
	id         BIGSERIAL PRIMARY KEY,
	ticket_id  BIGINT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	author_id  BIGINT NOT NULL REFERENCES users(id),
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the tables if missing and seeds the default catalog on an
// empty database.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if err := seed(ctx, db, "statuses", repository.DefaultStatuses); err != nil {
		return err
	}
	return seed(ctx, db, "priorities", repository.DefaultPriorities)
}

func seed(ctx context.Context, db *pgxpool.Pool, table string, names []string) error {
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	for _, name := range names {
		if _, err := db.Exec(ctx, `INSERT INTO `+table+` (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	return nil
}
