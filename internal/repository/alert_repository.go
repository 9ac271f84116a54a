package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// AlertRepository manages aggregation alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.AggregationAlert) error
	// ActiveByReason returns the active alert for a reason code, or
	// pgx.ErrNoRows when none exists.
	ActiveByReason(ctx context.Context, reasonCode string) (*domain.AggregationAlert, error)
	List(ctx context.Context, status *domain.AlertStatus, limit, offset int) ([]domain.AggregationAlert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository builds the repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Create(ctx context.Context, alert *domain.AggregationAlert) error {
	const query = `
        INSERT INTO aggregation_alerts (pattern_type, description, reason_code, bucket,
            affected_submitters, affected_subjects, ticket_ids, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		alert.PatternType,
		alert.Description,
		alert.ReasonCode,
		alert.Bucket,
		alert.AffectedSubmitters,
		alert.AffectedSubjects,
		alert.TicketIDs,
		alert.Status,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
}

func (r *alertRepository) ActiveByReason(ctx context.Context, reasonCode string) (*domain.AggregationAlert, error) {
	const query = `
        SELECT id, pattern_type, description, reason_code, bucket, affected_submitters,
               affected_subjects, ticket_ids, status, created_at, updated_at
        FROM aggregation_alerts WHERE reason_code=$1 AND status=$2`
	var alert domain.AggregationAlert
	if err := r.pool.QueryRow(ctx, query, reasonCode, domain.AlertStatusActive).Scan(
		&alert.ID,
		&alert.PatternType,
		&alert.Description,
		&alert.ReasonCode,
		&alert.Bucket,
		&alert.AffectedSubmitters,
		&alert.AffectedSubjects,
		&alert.TicketIDs,
		&alert.Status,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) List(ctx context.Context, status *domain.AlertStatus, limit, offset int) ([]domain.AggregationAlert, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
        SELECT id, pattern_type, description, reason_code, bucket, affected_submitters,
               affected_subjects, ticket_ids, status, created_at, updated_at
        FROM aggregation_alerts`
	args := []any{}
	if status != nil {
		args = append(args, *status)
		query += ` WHERE status=$1`
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AggregationAlert
	for rows.Next() {
		var alert domain.AggregationAlert
		if err := rows.Scan(
			&alert.ID,
			&alert.PatternType,
			&alert.Description,
			&alert.ReasonCode,
			&alert.Bucket,
			&alert.AffectedSubmitters,
			&alert.AffectedSubjects,
			&alert.TicketIDs,
			&alert.Status,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, alert)
	}
	return result, rows.Err()
}
