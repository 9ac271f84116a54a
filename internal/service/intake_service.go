package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/classify"
	"github.com/fieldlink/feedback-engine/internal/config"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/events"
	"github.com/fieldlink/feedback-engine/internal/locks"
	"github.com/fieldlink/feedback-engine/internal/repository"
	"github.com/fieldlink/feedback-engine/internal/sla"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
	apperrors "github.com/fieldlink/feedback-engine/pkg/util"
)

// IntakeService handles feedback submissions: validation, dedup/merge,
// classification, multi-bucket splits, SLA stamping and queue insertion.
type IntakeService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	queue      repository.QueueRepository
	counter    repository.CounterRepository
	taxonomy   *taxonomy.Repository
	classifier *classify.Classifier
	sla        *sla.Calculator
	locker     locks.KeyLocker
	aggregator *AggregationService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	business   config.BusinessConfig
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	QueueRepo   repository.QueueRepository
	CounterRepo repository.CounterRepository
	Taxonomy    *taxonomy.Repository
	Classifier  *classify.Classifier
	SLA         *sla.Calculator
	Locker      locks.KeyLocker
	Aggregator  *AggregationService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Business    config.BusinessConfig
}

// SubmitInput describes one feedback submission.
type SubmitInput struct {
	SubmitterID  string
	SubjectID    string
	Channel      domain.Channel
	ReasonCodes  []string
	RawText      string
	VoiceNoteRef *string
}

// SubmitResult is either a merge into an existing ticket or a set of
// newly created tickets (one per implicated bucket).
type SubmitResult struct {
	Merged         bool
	Ticket         *domain.Ticket
	Tickets        []domain.Ticket
	RoutingMessage string
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	return &IntakeService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		queue:      deps.QueueRepo,
		counter:    deps.CounterRepo,
		taxonomy:   deps.Taxonomy,
		classifier: deps.Classifier,
		sla:        deps.SLA,
		locker:     deps.Locker,
		aggregator: deps.Aggregator,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		business:   deps.Business,
	}
}

// SubmitFeedback routes one submission to a merge or to ticket creation.
func (s *IntakeService) SubmitFeedback(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if strings.TrimSpace(input.SubmitterID) == "" {
		return nil, apperrors.NewValidationError("submitter_id required", nil)
	}
	if strings.TrimSpace(input.SubjectID) == "" {
		return nil, apperrors.NewValidationError("subject_id required", nil)
	}
	if len(input.ReasonCodes) == 0 && strings.TrimSpace(input.RawText) == "" {
		return nil, apperrors.NewValidationError("either reason codes or text required", nil)
	}
	for _, code := range input.ReasonCodes {
		if _, ok := s.taxonomy.Lookup(code); !ok {
			return nil, apperrors.NewValidationError("unknown reason code", map[string]any{"code": code})
		}
	}
	if input.Channel == "" {
		input.Channel = domain.ChannelChat
	}

	subjectContext := fmt.Sprintf("Feedback about %s", input.SubjectID)
	classification := s.classifier.Classify(ctx, input.RawText, input.ReasonCodes, subjectContext)

	// Dedup check runs under a per-key lock so concurrent submissions
	// for the same (submitter, subject, bucket) serialize. If the lock
	// is unavailable the check degrades to best-effort.
	unlock, err := s.locker.Lock(ctx, dedupKey(input.SubmitterID, input.SubjectID, classification.Bucket), 5*time.Second)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer unlock()

	cutoff := time.Now().Add(-s.business.DedupWindow())
	existing, err := s.tickets.FindOpenTicket(ctx, input.SubmitterID, input.SubjectID, classification.Bucket, cutoff)
	if err == nil && existing != nil {
		merged, err := s.mergeFollowUp(ctx, existing, input)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{
			Merged:         true,
			Ticket:         merged,
			RoutingMessage: fmt.Sprintf("Added to existing ticket %s; the %s team has been re-notified.", merged.TicketNumber, merged.Bucket.DisplayName()),
		}, nil
	} else if err != nil && !apperrors.IsNotFound(err) {
		return nil, apperrors.NewInternalError(err)
	}

	tickets, err := s.createTickets(ctx, input, classification)
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(tickets))
	for _, t := range tickets {
		parts = append(parts, fmt.Sprintf("%s → %s (%d hour SLA)", t.TicketNumber, t.Bucket.DisplayName(), t.SLAHours))
	}
	return &SubmitResult{
		Tickets:        tickets,
		RoutingMessage: "Routed: " + strings.Join(parts, "; "),
	}, nil
}

// mergeFollowUp folds a repeat submission into an existing open ticket:
// text appended under a timestamped delimiter, codes unioned, status and
// SLA reset so the queue re-surfaces it.
func (s *IntakeService) mergeFollowUp(ctx context.Context, ticket *domain.Ticket, input SubmitInput) (*domain.Ticket, error) {
	now := time.Now()

	if text := strings.TrimSpace(input.RawText); text != "" {
		ticket.RawText = strings.TrimSpace(ticket.RawText) +
			fmt.Sprintf("\n\n--- Follow-up %s ---\n%s", now.Format(time.RFC3339), text)
	}

	known := map[string]bool{ticket.ReasonCode: true}
	for _, code := range ticket.SecondaryReasons {
		known[code] = true
	}
	added := []string{}
	for _, code := range input.ReasonCodes {
		if !known[code] {
			ticket.SecondaryReasons = append(ticket.SecondaryReasons, code)
			known[code] = true
			added = append(added, code)
		}
	}

	oldStatus := ticket.Status
	if domain.CanTransition(ticket.Status, domain.TicketStatusReceived) {
		ticket.Status = domain.TicketStatusReceived
	}
	ticket.SLADeadline, ticket.SLAHours = s.sla.Deadline(ticket.Bucket, ticket.Priority, now)
	ticket.MergedCount++

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.queue.UpdateForTicket(ctx, ticket.ID, domain.QueueStatusOpen, domain.SLAStatusOnTrack); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	body := "Follow-up received from submitter."
	if len(added) > 0 {
		body = fmt.Sprintf("Follow-up received; added reason codes: %s.", strings.Join(added, ", "))
	}
	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeSystem,
		SenderName: "routing",
		Kind:       domain.MessageKindStatusChange,
		Body:       body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketMerged,
		TicketID: ticket.ID,
		Payload: events.TicketMergedPayload{
			TicketNumber: ticket.TicketNumber,
			AddedCodes:   added,
			MergedCount:  ticket.MergedCount,
		},
	})
	s.logger.Info("submission merged into existing ticket",
		zap.String("ticket", ticket.TicketNumber),
		zap.String("old_status", string(oldStatus)))
	return ticket, nil
}

// createTickets creates one ticket per implicated bucket. The first
// created ticket becomes the shared parent reference for its siblings.
func (s *IntakeService) createTickets(ctx context.Context, input SubmitInput, cls domain.Classification) ([]domain.Ticket, error) {
	type slice struct {
		bucket domain.Bucket
		codes  []string
	}
	slices := []slice{}
	if cls.MultiBucket {
		for _, bucket := range domain.BucketOrder() {
			if codes := cls.BucketCodes[bucket]; len(codes) > 0 {
				slices = append(slices, slice{bucket: bucket, codes: codes})
			}
		}
	} else {
		codes := append([]string{cls.ReasonCode}, cls.SecondaryReasons...)
		slices = append(slices, slice{bucket: cls.Bucket, codes: codes})
	}

	created := make([]domain.Ticket, 0, len(slices))
	var parentID *string
	for _, sl := range slices {
		number, err := s.nextTicketNumber(ctx)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}

		primary := ""
		secondary := []string{}
		if len(sl.codes) > 0 && sl.codes[0] != "" {
			primary = sl.codes[0]
			secondary = sl.codes[1:]
		}

		now := time.Now()
		deadline, hours := s.sla.Deadline(sl.bucket, cls.Priority, now)
		ticket := domain.Ticket{
			TicketNumber:     number,
			SubmitterID:      input.SubmitterID,
			SubjectID:        input.SubjectID,
			Channel:          input.Channel,
			Bucket:           sl.bucket,
			ReasonCode:       primary,
			SecondaryReasons: secondary,
			Confidence:       cls.Confidence,
			Summary:          cls.Summary,
			RawText:          input.RawText,
			Priority:         cls.Priority,
			UrgencyScore:     cls.UrgencyScore,
			ChurnRisk:        cls.ChurnRisk,
			Sentiment:        cls.Sentiment,
			SLAHours:         hours,
			SLADeadline:      deadline,
			Status:           domain.TicketStatusRouted,
			ParentTicketID:   parentID,
			VoiceNoteRef:     input.VoiceNoteRef,
		}
		if err := s.tickets.Create(ctx, &ticket); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if parentID == nil {
			id := ticket.ID
			parentID = &id
		}

		entry := domain.QueueEntry{
			TicketID:   ticket.ID,
			Department: sl.bucket,
			Status:     domain.QueueStatusOpen,
			SLAStatus:  domain.SLAStatusOnTrack,
		}
		if err := s.queue.Create(ctx, &entry); err != nil {
			return nil, apperrors.NewInternalError(err)
		}

		msg := &domain.TicketMessage{
			TicketID:   ticket.ID,
			SenderType: domain.SenderTypeSystem,
			SenderName: "routing",
			Kind:       domain.MessageKindStatusChange,
			Body:       fmt.Sprintf("Routed to %s as %s priority.", sl.bucket.DisplayName(), ticket.Priority),
		}
		if err := s.messages.Create(ctx, msg); err != nil {
			return nil, apperrors.NewInternalError(err)
		}

		created = append(created, ticket)
	}

	// Cross-link siblings after all ids are known.
	if len(created) > 1 {
		for i := range created {
			related := []string{}
			for j := range created {
				if j != i {
					related = append(related, created[j].ID)
				}
			}
			created[i].RelatedTicketIDs = related
			created[i].ParentTicketID = parentID
			if err := s.tickets.Update(ctx, &created[i]); err != nil {
				return nil, apperrors.NewInternalError(err)
			}
		}
	}

	for i := range created {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: created[i].ID,
			Payload: events.TicketCreatedPayload{
				TicketNumber: created[i].TicketNumber,
				Bucket:       created[i].Bucket,
				ReasonCode:   created[i].ReasonCode,
				Priority:     created[i].Priority,
				SubmitterID:  created[i].SubmitterID,
				SubjectID:    created[i].SubjectID,
			},
		})
		s.aggregator.DetectPattern(ctx, &created[i])
	}

	return created, nil
}

func (s *IntakeService) nextTicketNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	seq, err := s.counter.Next(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%05d", s.business.TicketPrefix, year, seq), nil
}

func (s *IntakeService) publish(ctx context.Context, event events.Event) {
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

func dedupKey(submitterID, subjectID string, bucket domain.Bucket) string {
	return "dedup:" + submitterID + ":" + subjectID + ":" + string(bucket)
}
