package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// QueueRepository manages department queue entries.
type QueueRepository interface {
	Create(ctx context.Context, entry *domain.QueueEntry) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.QueueEntry, error)
	UpdateForTicket(ctx context.Context, ticketID string, status domain.QueueStatus, slaStatus domain.SLAStatus) error
	ListByDepartment(ctx context.Context, department domain.Bucket, status *domain.QueueStatus, limit, offset int) ([]domain.QueueEntry, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository builds the repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) Create(ctx context.Context, entry *domain.QueueEntry) error {
	const query = `
        INSERT INTO queue_entries (ticket_id, department, assigned_to, status, sla_status, escalation_level)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.Department,
		entry.AssignedTo,
		entry.Status,
		entry.SLAStatus,
		entry.EscalationLevel,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

func (r *queueRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.QueueEntry, error) {
	const query = `
        SELECT id, ticket_id, department, assigned_to, status, sla_status, escalation_level, created_at, updated_at
        FROM queue_entries WHERE ticket_id=$1`
	var entry domain.QueueEntry
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&entry.ID,
		&entry.TicketID,
		&entry.Department,
		&entry.AssignedTo,
		&entry.Status,
		&entry.SLAStatus,
		&entry.EscalationLevel,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *queueRepository) UpdateForTicket(ctx context.Context, ticketID string, status domain.QueueStatus, slaStatus domain.SLAStatus) error {
	const query = `
        UPDATE queue_entries SET status=$1, sla_status=$2, updated_at=NOW()
        WHERE ticket_id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, slaStatus, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *queueRepository) ListByDepartment(ctx context.Context, department domain.Bucket, status *domain.QueueStatus, limit, offset int) ([]domain.QueueEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
        SELECT id, ticket_id, department, assigned_to, status, sla_status, escalation_level, created_at, updated_at
        FROM queue_entries WHERE department=$1`
	args := []any{department}
	if status != nil {
		args = append(args, *status)
		query += ` AND status=$2`
	}
	query += fmt.Sprintf(` ORDER BY updated_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.QueueEntry
	for rows.Next() {
		var entry domain.QueueEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Department,
			&entry.AssignedTo,
			&entry.Status,
			&entry.SLAStatus,
			&entry.EscalationLevel,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
