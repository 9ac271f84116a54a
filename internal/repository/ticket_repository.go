package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	SubmitterID *string
	SubjectID   *string
	Bucket      *domain.Bucket
	ReasonCode  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	// FindOpenTicket returns the most recent non-closed ticket for the
	// same submitter, subject and bucket created after the cutoff, or
	// pgx.ErrNoRows when none exists.
	FindOpenTicket(ctx context.Context, submitterID, subjectID string, bucket domain.Bucket, createdAfter time.Time) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListByReasonSince(ctx context.Context, reasonCode string, createdAfter time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, submitter_id, subject_id, channel, bucket, reason_code,
       secondary_reasons, confidence, summary, raw_text, priority, urgency_score, churn_risk,
       sentiment, sla_hours, sla_deadline, status, response_text, response_by, responded_at,
       script_text, script_sent_at, parent_ticket_id, related_ticket_ids, merged_count,
       voice_note_ref, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, submitter_id, subject_id, channel, bucket, reason_code,
            secondary_reasons, confidence, summary, raw_text, priority, urgency_score, churn_risk,
            sentiment, sla_hours, sla_deadline, status, parent_ticket_id, related_ticket_ids, voice_note_ref)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.SubmitterID,
		ticket.SubjectID,
		ticket.Channel,
		ticket.Bucket,
		ticket.ReasonCode,
		ticket.SecondaryReasons,
		ticket.Confidence,
		ticket.Summary,
		ticket.RawText,
		ticket.Priority,
		ticket.UrgencyScore,
		ticket.ChurnRisk,
		ticket.Sentiment,
		ticket.SLAHours,
		ticket.SLADeadline,
		ticket.Status,
		ticket.ParentTicketID,
		ticket.RelatedTicketIDs,
		ticket.VoiceNoteRef,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET reason_code=$1, secondary_reasons=$2, summary=$3, raw_text=$4,
            priority=$5, urgency_score=$6, churn_risk=$7, sentiment=$8, sla_hours=$9,
            sla_deadline=$10, status=$11, response_text=$12, response_by=$13, responded_at=$14,
            script_text=$15, script_sent_at=$16, parent_ticket_id=$17, related_ticket_ids=$18,
            merged_count=$19, updated_at=NOW()
        WHERE id=$20`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.ReasonCode,
		ticket.SecondaryReasons,
		ticket.Summary,
		ticket.RawText,
		ticket.Priority,
		ticket.UrgencyScore,
		ticket.ChurnRisk,
		ticket.Sentiment,
		ticket.SLAHours,
		ticket.SLADeadline,
		ticket.Status,
		ticket.ResponseText,
		ticket.ResponseBy,
		ticket.RespondedAt,
		ticket.ScriptText,
		ticket.ScriptSentAt,
		ticket.ParentTicketID,
		ticket.RelatedTicketIDs,
		ticket.MergedCount,
		ticket.ID,
	)
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
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) FindOpenTicket(ctx context.Context, submitterID, subjectID string, bucket domain.Bucket, createdAfter time.Time) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE submitter_id=$1 AND subject_id=$2 AND bucket=$3 AND status <> $4 AND created_at >= $5
        ORDER BY created_at DESC LIMIT 1`
	var ticket domain.Ticket
	row := r.pool.QueryRow(ctx, query, submitterID, subjectID, bucket, domain.TicketStatusClosed, createdAfter)
	if err := scanTicketRow(row, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	row := r.pool.QueryRow(ctx, query, arg)
	if err := scanTicketRow(row, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SubmitterID != nil {
		args = append(args, *filter.SubmitterID)
		clauses = append(clauses, fmt.Sprintf("submitter_id=$%d", len(args)))
	}
	if filter.SubjectID != nil {
		args = append(args, *filter.SubjectID)
		clauses = append(clauses, fmt.Sprintf("subject_id=$%d", len(args)))
	}
	if filter.Bucket != nil {
		args = append(args, *filter.Bucket)
		clauses = append(clauses, fmt.Sprintf("bucket=$%d", len(args)))
	}
	if filter.ReasonCode != nil {
		args = append(args, *filter.ReasonCode)
		clauses = append(clauses, fmt.Sprintf("reason_code=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByReasonSince(ctx context.Context, reasonCode string, createdAfter time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE (reason_code=$1 OR $1 = ANY(secondary_reasons)) AND created_at >= $2
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, reasonCode, createdAfter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

type ticketScanner interface {
	Scan(dest ...any) error
}

func scanTicketRow(row ticketScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.SubmitterID,
		&ticket.SubjectID,
		&ticket.Channel,
		&ticket.Bucket,
		&ticket.ReasonCode,
		&ticket.SecondaryReasons,
		&ticket.Confidence,
		&ticket.Summary,
		&ticket.RawText,
		&ticket.Priority,
		&ticket.UrgencyScore,
		&ticket.ChurnRisk,
		&ticket.Sentiment,
		&ticket.SLAHours,
		&ticket.SLADeadline,
		&ticket.Status,
		&ticket.ResponseText,
		&ticket.ResponseBy,
		&ticket.RespondedAt,
		&ticket.ScriptText,
		&ticket.ScriptSentAt,
		&ticket.ParentTicketID,
		&ticket.RelatedTicketIDs,
		&ticket.MergedCount,
		&ticket.VoiceNoteRef,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicketRow(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
