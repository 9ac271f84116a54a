package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// TicketMessageRepository manages append-only ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_type, sender_name, kind, body, attachment_ref)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderType,
		msg.SenderName,
		msg.Kind,
		msg.Body,
		msg.AttachmentRef,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_type, sender_name, kind, body, attachment_ref, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderType,
			&msg.SenderName,
			&msg.Kind,
			&msg.Body,
			&msg.AttachmentRef,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *ticketMessageRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COUNT(*) FROM ticket_messages WHERE ticket_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
