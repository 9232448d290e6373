package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"helpdesk/internal/models"
	"helpdesk/internal/repository"
)

type TicketRepo struct{ db *pgxpool.Pool }

func NewTicketRepo(db *pgxpool.Pool) *TicketRepo { return &TicketRepo{db: db} }

// ticketSelect joins the display names so every read is fully denormalized.
const ticketSelect = `
	SELECT
		t.id, t.subject, t.description, t.status_id, COALESCE(s.name, ''), t.priority_id,
		t.created_by, COALESCE(c.name, ''), t.assigned_to, COALESCE(a.name, ''), t.created_at
	FROM tickets t
	LEFT JOIN statuses s ON s.id = t.status_id
	LEFT JOIN users c ON c.id = t.created_by
	LEFT JOIN users a ON a.id = t.assigned_to
`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(
		&t.ID, &t.Subject, &t.Description, &t.StatusID, &t.StatusName, &t.PriorityID,
		&t.CreatedBy, &t.CreatedByName, &t.AssignedTo, &t.AssignedToName, &t.CreatedAt,
	)
	return t, err
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (r *TicketRepo) List(ctx context.Context, f repository.TicketFilter) ([]models.Ticket, error) {
	whereSQL, args := buildTicketWhere(f)
	rows, err := r.db.Query(ctx, ticketSelect+whereSQL+` ORDER BY t.created_at DESC, t.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TicketRepo) Get(ctx context.Context, id int64) (*models.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, ticketSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// Create inserts t with the first status when none is set, then reloads it so
// the caller gets the joined names.
func (r *TicketRepo) Create(ctx context.Context, t *models.Ticket) error {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO tickets (subject, description, status_id, priority_id, created_by, assigned_to)
		VALUES ($1, $2, COALESCE(NULLIF($3::bigint, 0), (SELECT MIN(id) FROM statuses)), $4, $5, $6)
		RETURNING id
	`, t.Subject, t.Description, t.StatusID, t.PriorityID, t.CreatedBy, t.AssignedTo).Scan(&id)
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if got == nil {
		return repository.ErrNotFound
	}
	*t = *got
	return nil
}

// Update only touches the columns set in p.
func (r *TicketRepo) Update(ctx context.Context, id int64, p models.TicketPatch) error {
	sets := []string{}
	args := []any{}
	if p.StatusID != nil {
		args = append(args, *p.StatusID)
		sets = append(sets, "status_id = $"+itoa(len(args)))
	}
	if p.PriorityID != nil {
		args = append(args, *p.PriorityID)
		sets = append(sets, "priority_id = $"+itoa(len(args)))
	}
	if p.AssignedTo != nil {
		args = append(args, *p.AssignedTo)
		sets = append(sets, "assigned_to = $"+itoa(len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	ct, err := r.db.Exec(ctx, `UPDATE tickets SET `+strings.Join(sets, ", ")+`, updated_at = now() WHERE id = $`+itoa(len(args)), args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TicketRepo) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Comments
// -----------------------------------------------------------------------------

func (r *TicketRepo) ListComments(ctx context.Context, ticketID int64) ([]models.TicketComment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.ticket_id, c.author_id, COALESCE(u.name, ''), c.content, c.created_at
		FROM ticket_comments c
		LEFT JOIN users u ON u.id = c.author_id
		WHERE c.ticket_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TicketComment{}
	for rows.Next() {
		var c models.TicketComment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *TicketRepo) AddComment(ctx context.Context, ticketID, authorID int64, content string) (*models.TicketComment, error) {
	var c models.TicketComment
	err := r.db.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO ticket_comments (ticket_id, author_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, ticket_id, author_id, content, created_at
		)
		SELECT ins.id, ins.ticket_id, ins.author_id, COALESCE(u.name, ''), ins.content, ins.created_at
		FROM ins LEFT JOIN users u ON u.id = ins.author_id
	`, ticketID, authorID, content).Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func buildTicketWhere(f repository.TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.CreatedBy != 0 {
		args = append(args, f.CreatedBy)
		clauses = append(clauses, "t.created_by = $"+itoa(len(args)))
	}
	if f.AssignedTo != 0 {
		args = append(args, f.AssignedTo)
		clauses = append(clauses, "t.assigned_to = $"+itoa(len(args)))
	}
	if f.StatusID != 0 {
		args = append(args, f.StatusID)
		clauses = append(clauses, "t.status_id = $"+itoa(len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func itoa(i int) string { return strconv.Itoa(i) }
