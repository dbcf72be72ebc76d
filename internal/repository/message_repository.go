package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliphub/support-service/internal/domain"
)

// MessageRepository encapsulates ticket message persistence. Attachments
// are stored inline as JSONB on the message row.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	// ListAll returns every message grouped by ticket id, each thread in
	// chronological order.
	ListAll(ctx context.Context) (map[string][]domain.Message, error)
	// MarkThreadRead flips unread messages from the given sender to read.
	MarkThreadRead(ctx context.Context, ticketID string, sender domain.MessageSender) error
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO ticket_messages (id, ticket_id, sender, sender_name, body, attachments,
            delivery_status, read, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9, NOW()))
        RETURNING created_at`
	var createdAt any
	if !msg.CreatedAt.IsZero() {
		createdAt = msg.CreatedAt
	}
	return r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.TicketID,
		msg.Sender,
		msg.SenderName,
		msg.Body,
		msg.Attachments,
		msg.Status,
		msg.Read,
		createdAt,
	).Scan(&msg.CreatedAt)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender, sender_name, body, attachments, delivery_status, read, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) ListAll(ctx context.Context) (map[string][]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender, sender_name, body, attachments, delivery_status, read, created_at
        FROM ticket_messages ORDER BY ticket_id, created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]domain.Message)
	for _, msg := range msgs {
		grouped[msg.TicketID] = append(grouped[msg.TicketID], msg)
	}
	return grouped, nil
}

func (r *messageRepository) MarkThreadRead(ctx context.Context, ticketID string, sender domain.MessageSender) error {
	const query = `
        UPDATE ticket_messages SET read=TRUE, delivery_status=$1
        WHERE ticket_id=$2 AND sender=$3 AND read=FALSE`
	_, err := r.pool.Exec(ctx, query, domain.DeliveryRead, ticketID, sender)
	return err
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.Sender,
			&msg.SenderName,
			&msg.Body,
			&msg.Attachments,
			&msg.Status,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
