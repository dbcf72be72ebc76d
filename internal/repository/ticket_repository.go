package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliphub/support-service/internal/domain"
)

const ticketColumns = `id, subject, category, status, priority, requester_user_id, requester_name,
	requester_email, requester_role, assigned_to, tags, internal_notes, satisfaction,
	revision, created_at, updated_at, resolved_at`

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update applies the ticket state and bumps its revision. The update
	// only succeeds when ticket.Revision matches the stored row; otherwise
	// ErrStaleRevision is returned and the row is left untouched.
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByRequester(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, subject, category, status, priority, requester_user_id,
            requester_name, requester_email, requester_role, assigned_to, tags,
            internal_notes, satisfaction, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,
            COALESCE($14, NOW()), COALESCE($14, NOW()))
        RETURNING revision, created_at, updated_at`
	var createdAt any
	if !ticket.CreatedAt.IsZero() {
		createdAt = ticket.CreatedAt
	}
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Subject,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.RequesterID,
		ticket.RequesterName,
		ticket.RequesterEmail,
		ticket.RequesterRole,
		ticket.AssignedTo,
		ticket.Tags,
		ticket.InternalNotes,
		ticket.Satisfaction,
		createdAt,
	).Scan(&ticket.Revision, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, category=$2, status=$3, priority=$4, assigned_to=$5,
            tags=$6, internal_notes=$7, satisfaction=$8, resolved_at=$9,
            revision=revision+1, updated_at=NOW()
        WHERE id=$10 AND revision=$11
        RETURNING revision, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.Tags,
		ticket.InternalNotes,
		ticket.Satisfaction,
		ticket.ResolvedAt,
		ticket.ID,
		ticket.Revision,
	).Scan(&ticket.Revision, &ticket.UpdatedAt)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return err
	}

	// Distinguish a vanished row from a concurrent writer.
	var exists bool
	if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); checkErr != nil {
		return checkErr
	}
	if exists {
		return ErrStaleRevision
	}
	return pgx.ErrNoRows
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByRequester(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE requester_user_id=$1 ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.Subject,
		&t.Category,
		&t.Status,
		&t.Priority,
		&t.RequesterID,
		&t.RequesterName,
		&t.RequesterEmail,
		&t.RequesterRole,
		&t.AssignedTo,
		&t.Tags,
		&t.InternalNotes,
		&t.Satisfaction,
		&t.Revision,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ResolvedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
