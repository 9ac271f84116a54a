package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/config"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/events"
	"github.com/fieldlink/feedback-engine/internal/locks"
	"github.com/fieldlink/feedback-engine/internal/repository"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
	apperrors "github.com/fieldlink/feedback-engine/pkg/util"
)

// AggregationService detects recurring reason-code patterns across
// tickets and raises a single active alert per pattern.
type AggregationService struct {
	tickets    repository.TicketRepository
	alerts     repository.AlertRepository
	taxonomy   *taxonomy.Repository
	locker     locks.KeyLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	business   config.BusinessConfig
}

// NewAggregationService constructs the service.
func NewAggregationService(
	tickets repository.TicketRepository,
	alerts repository.AlertRepository,
	taxonomyRepo *taxonomy.Repository,
	locker locks.KeyLocker,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
	business config.BusinessConfig,
) *AggregationService {
	return &AggregationService{
		tickets:    tickets,
		alerts:     alerts,
		taxonomy:   taxonomyRepo,
		locker:     locker,
		dispatcher: dispatcher,
		logger:     logger,
		business:   business,
	}
}

// DetectPattern runs after every successful ticket creation. All errors
// are absorbed and logged: a detection failure must never fail the
// submission that triggered it.
func (s *AggregationService) DetectPattern(ctx context.Context, ticket *domain.Ticket) {
	if ticket.ReasonCode == "" {
		return
	}

	unlock, err := s.locker.Lock(ctx, "aggregation:"+ticket.ReasonCode, 5*time.Second)
	if err != nil {
		s.logger.Warn("aggregation lock failed", zap.Error(err))
		return
	}
	defer unlock()

	cutoff := time.Now().Add(-s.business.AggregationWindow())
	recent, err := s.tickets.ListByReasonSince(ctx, ticket.ReasonCode, cutoff)
	if err != nil {
		s.logger.Error("aggregation scan failed", zap.String("reason", ticket.ReasonCode), zap.Error(err))
		return
	}
	if len(recent) < s.business.AggregationThreshold {
		return
	}

	if _, err := s.alerts.ActiveByReason(ctx, ticket.ReasonCode); err == nil {
		// An active alert already covers this pattern.
		return
	} else if !apperrors.IsNotFound(err) {
		s.logger.Error("aggregation alert lookup failed", zap.String("reason", ticket.ReasonCode), zap.Error(err))
		return
	}

	submitters := map[string]bool{}
	subjects := map[string]bool{}
	ticketIDs := make([]string, 0, len(recent))
	for _, t := range recent {
		submitters[t.SubmitterID] = true
		subjects[t.SubjectID] = true
		ticketIDs = append(ticketIDs, t.ID)
	}

	reasonName := s.taxonomy.DisplayName(ticket.ReasonCode)
	alert := domain.AggregationAlert{
		PatternType: "recurring_reason",
		Description: fmt.Sprintf("%d tickets for %q in the last %d days across %d submitters",
			len(recent), reasonName, s.business.AggregationWindowDays, len(submitters)),
		ReasonCode:         ticket.ReasonCode,
		Bucket:             ticket.Bucket,
		AffectedSubmitters: len(submitters),
		AffectedSubjects:   len(subjects),
		TicketIDs:          ticketIDs,
		Status:             domain.AlertStatusActive,
	}
	if err := s.alerts.Create(ctx, &alert); err != nil {
		// The partial unique index on active alerts turns a lost race
		// into a conflict here; an extra alert is never persisted.
		s.logger.Warn("aggregation alert insert failed", zap.String("reason", ticket.ReasonCode), zap.Error(err))
		return
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAggregationAlertRaised,
		TicketID: ticket.ID,
		Payload: events.AggregationAlertRaisedPayload{
			AlertID:     alert.ID,
			ReasonCode:  alert.ReasonCode,
			Bucket:      alert.Bucket,
			TicketCount: len(recent),
		},
	})
	s.logger.Info("aggregation alert raised",
		zap.String("reason", ticket.ReasonCode),
		zap.Int("tickets", len(recent)))
}

// EnrichedAlert pairs an alert with its human-readable reason name.
type EnrichedAlert struct {
	Alert      domain.AggregationAlert
	ReasonName string
}

// ListAlerts returns alerts, optionally filtered by status.
func (s *AggregationService) ListAlerts(ctx context.Context, status *domain.AlertStatus, limit, offset int) ([]EnrichedAlert, error) {
	alerts, err := s.alerts.List(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	result := make([]EnrichedAlert, 0, len(alerts))
	for _, alert := range alerts {
		result = append(result, EnrichedAlert{
			Alert:      alert,
			ReasonName: s.taxonomy.DisplayName(alert.ReasonCode),
		})
	}
	return result, nil
}

func (s *AggregationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
