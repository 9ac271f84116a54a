package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/events"
	"github.com/fieldlink/feedback-engine/internal/notify"
	"github.com/fieldlink/feedback-engine/internal/repository"
	"github.com/fieldlink/feedback-engine/internal/sla"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
	apperrors "github.com/fieldlink/feedback-engine/pkg/util"
)

// ScriptQueue accepts tickets for asynchronous script generation.
type ScriptQueue interface {
	Enqueue(ticketID string) bool
}

// TicketService coordinates ticket lifecycle operations after intake:
// department responses, thread messages, close/reopen, ratings and
// read-side queries.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	queue      repository.QueueRepository
	taxonomy   *taxonomy.Repository
	sla        *sla.Calculator
	pipeline   ScriptQueue
	notifier   notify.Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	QueueRepo   repository.QueueRepository
	Taxonomy    *taxonomy.Repository
	SLA         *sla.Calculator
	Pipeline    ScriptQueue
	Notifier    notify.Notifier
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		queue:      deps.QueueRepo,
		taxonomy:   deps.Taxonomy,
		sla:        deps.SLA,
		pipeline:   deps.Pipeline,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// EnrichedTicket pairs a ticket with read-side derived fields.
type EnrichedTicket struct {
	Ticket       domain.Ticket
	BucketName   string
	ReasonName   string
	SLAStatus    domain.SLAStatus
	MessageCount int
}

// TicketQuery captures list filters.
type TicketQuery struct {
	SubmitterID *string
	SubjectID   *string
	Bucket      *domain.Bucket
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Limit       int
	Offset      int
}

// RespondToTicket records a department reply synchronously and queues
// asynchronous script generation. Returns the updated ticket and
// whether generation was queued.
func (s *TicketService) RespondToTicket(ctx context.Context, ticketNumber, responseText, responder string) (*domain.Ticket, bool, error) {
	if strings.TrimSpace(responseText) == "" {
		return nil, false, apperrors.NewValidationError("response text required", nil)
	}
	if strings.TrimSpace(responder) == "" {
		return nil, false, apperrors.NewValidationError("responder required", nil)
	}

	ticket, err := s.getByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, false, err
	}
	if !domain.CanTransition(ticket.Status, domain.TicketStatusResponded) {
		return nil, false, apperrors.NewConflict("ticket cannot accept a response in its current status",
			map[string]any{"status": ticket.Status})
	}

	now := time.Now()
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusResponded
	ticket.ResponseText = &responseText
	ticket.ResponseBy = &responder
	ticket.RespondedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	if err := s.queue.UpdateForTicket(ctx, ticket.ID, domain.QueueStatusResponded, domain.SLAStatusCompleted); err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}

	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeDepartment,
		SenderName: responder,
		Kind:       domain.MessageKindText,
		Body:       responseText,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}

	s.publishStatusChange(ctx, ticket, oldStatus, "department_responded")
	s.publish(ctx, events.Event{
		Type:     events.EventDepartmentResponded,
		TicketID: ticket.ID,
		Payload: events.DepartmentRespondedPayload{
			TicketNumber: ticket.TicketNumber,
			ResponseBy:   responder,
		},
	})

	queued := false
	if s.pipeline != nil {
		queued = s.pipeline.Enqueue(ticket.ID)
		if !queued {
			s.logger.Warn("script pipeline queue full", zap.String("ticket", ticket.TicketNumber))
		}
	}
	return ticket, queued, nil
}

// AddThreadMessage appends a message to a ticket's conversation thread.
// A department clarification request moves the ticket to pending_adm and
// notifies the submitter; a submitter reply on a pending_adm ticket
// returns it to routed.
func (s *TicketService) AddThreadMessage(ctx context.Context, ticketNumber string, senderType domain.MessageSenderType, senderName, body string, kind domain.MessageKind, attachmentRef *string) (*domain.TicketMessage, error) {
	if strings.TrimSpace(body) == "" && attachmentRef == nil {
		return nil, apperrors.NewValidationError("message body or attachment required", nil)
	}
	switch senderType {
	case domain.SenderTypeSubmitter, domain.SenderTypeDepartment, domain.SenderTypeSystem, domain.SenderTypeAssistant:
	default:
		return nil, apperrors.NewValidationError("unknown sender type", nil)
	}
	if kind == "" {
		kind = domain.MessageKindText
	}

	ticket, err := s.getByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("cannot add messages to a closed ticket", nil)
	}

	msg := &domain.TicketMessage{
		TicketID:      ticket.ID,
		SenderType:    senderType,
		SenderName:    senderName,
		Kind:          kind,
		Body:          strings.TrimSpace(body),
		AttachmentRef: attachmentRef,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if senderType == domain.SenderTypeDepartment && kind == domain.MessageKindClarification {
		if domain.CanTransition(ticket.Status, domain.TicketStatusPendingAdm) {
			oldStatus := ticket.Status
			ticket.Status = domain.TicketStatusPendingAdm
			if err := s.tickets.Update(ctx, ticket); err != nil {
				return nil, apperrors.NewInternalError(err)
			}
			s.publishStatusChange(ctx, ticket, oldStatus, "clarification_requested")
		}
		s.notifySubmitter(ctx, ticket, "clarification_request",
			"The "+ticket.Bucket.DisplayName()+" team needs more detail on ticket "+ticket.TicketNumber+".")
	}

	if senderType == domain.SenderTypeSubmitter && ticket.Status == domain.TicketStatusPendingAdm {
		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusRouted
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if err := s.queue.UpdateForTicket(ctx, ticket.ID, domain.QueueStatusOpen, s.sla.StatusAt(ticket, time.Now())); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		s.publishStatusChange(ctx, ticket, oldStatus, "clarification_provided")
	}

	return msg, nil
}

// CloseTicket closes from any non-closed state.
func (s *TicketService) CloseTicket(ctx context.Context, ticketNumber, closedBy string) (*domain.Ticket, error) {
	ticket, err := s.getByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("ticket already closed", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.queue.UpdateForTicket(ctx, ticket.ID, domain.QueueStatusClosed, domain.SLAStatusCompleted); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeSystem,
		SenderName: closedBy,
		Kind:       domain.MessageKindStatusChange,
		Body:       "Ticket closed.",
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publishStatusChange(ctx, ticket, oldStatus, "closed")
	return ticket, nil
}

// ReopenTicket moves a closed ticket back to routed with a fresh SLA
// deadline computed from the reopen time.
func (s *TicketService) ReopenTicket(ctx context.Context, ticketNumber, reopenedBy string) (*domain.Ticket, error) {
	ticket, err := s.getByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("only closed tickets can be reopened", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusRouted
	ticket.SLADeadline, ticket.SLAHours = s.sla.Deadline(ticket.Bucket, ticket.Priority, time.Now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.queue.UpdateForTicket(ctx, ticket.ID, domain.QueueStatusOpen, domain.SLAStatusOnTrack); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeSystem,
		SenderName: reopenedBy,
		Kind:       domain.MessageKindStatusChange,
		Body:       "Ticket reopened; SLA deadline reset.",
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publishStatusChange(ctx, ticket, oldStatus, "reopened")
	return ticket, nil
}

// RateScript records the submitter's verdict on the delivered script.
// A helpful rating auto-closes the ticket; any other rating leaves the
// status unchanged.
func (s *TicketService) RateScript(ctx context.Context, ticketNumber string, helpful bool, comment string) (*domain.Ticket, error) {
	ticket, err := s.getByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if ticket.ScriptText == nil {
		return nil, apperrors.NewConflict("no script has been generated for this ticket", nil)
	}

	body := "Submitter rated the script: not helpful."
	if helpful {
		body = "Submitter rated the script: helpful."
	}
	if strings.TrimSpace(comment) != "" {
		body += " " + strings.TrimSpace(comment)
	}
	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeSubmitter,
		SenderName: ticket.SubmitterID,
		Kind:       domain.MessageKindText,
		Body:       body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if !helpful || ticket.Status == domain.TicketStatusClosed {
		return ticket, nil
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.queue.UpdateForTicket(ctx, ticket.ID, domain.QueueStatusClosed, domain.SLAStatusCompleted); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publishStatusChange(ctx, ticket, oldStatus, "rated_helpful")
	return ticket, nil
}

// GetTicket returns one enriched ticket with its full thread.
func (s *TicketService) GetTicket(ctx context.Context, ticketNumber string) (*EnrichedTicket, []domain.TicketMessage, error) {
	ticket, err := s.getByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	enriched := s.enrich(ticket, len(msgs))
	return &enriched, msgs, nil
}

// ListTickets returns enriched tickets matching the query.
func (s *TicketService) ListTickets(ctx context.Context, query TicketQuery) ([]EnrichedTicket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		SubmitterID: query.SubmitterID,
		SubjectID:   query.SubjectID,
		Bucket:      query.Bucket,
		Statuses:    query.Statuses,
		Priorities:  query.Priorities,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	result := make([]EnrichedTicket, 0, len(tickets))
	for i := range tickets {
		count, err := s.messages.CountByTicket(ctx, tickets[i].ID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		result = append(result, s.enrich(&tickets[i], count))
	}
	return result, nil
}

// QueueItem pairs a queue entry with its enriched ticket.
type QueueItem struct {
	Entry  domain.QueueEntry
	Ticket EnrichedTicket
}

// DepartmentQueue returns the triage view for one department.
func (s *TicketService) DepartmentQueue(ctx context.Context, department domain.Bucket, status *domain.QueueStatus, limit, offset int) ([]QueueItem, error) {
	if !department.IsValid() {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": department})
	}
	entries, err := s.queue.ListByDepartment(ctx, department, status, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	result := make([]QueueItem, 0, len(entries))
	for _, entry := range entries {
		ticket, err := s.tickets.GetByID(ctx, entry.TicketID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		count, err := s.messages.CountByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		result = append(result, QueueItem{Entry: entry, Ticket: s.enrich(ticket, count)})
	}
	return result, nil
}

func (s *TicketService) getByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

func (s *TicketService) enrich(ticket *domain.Ticket, messageCount int) EnrichedTicket {
	return EnrichedTicket{
		Ticket:       *ticket,
		BucketName:   ticket.Bucket.DisplayName(),
		ReasonName:   s.taxonomy.DisplayName(ticket.ReasonCode),
		SLAStatus:    s.sla.StatusAt(ticket, time.Now()),
		MessageCount: messageCount,
	}
}

func (s *TicketService) notifySubmitter(ctx context.Context, ticket *domain.Ticket, kind, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.NotifySubmitter(ctx, notify.SubmitterNotice{
		TicketNumber: ticket.TicketNumber,
		SubmitterID:  ticket.SubmitterID,
		Kind:         kind,
		Message:      message,
	})
	if err != nil {
		s.logger.Warn("submitter notification failed",
			zap.String("ticket", ticket.TicketNumber), zap.Error(err))
	}
}

func (s *TicketService) publishStatusChange(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus, comment string) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   comment,
		},
	})
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
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
