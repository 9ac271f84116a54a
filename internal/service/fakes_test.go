package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/events"
	"github.com/fieldlink/feedback-engine/internal/notify"
	"github.com/fieldlink/feedback-engine/internal/repository"
)

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{byID: map[string]domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.byID[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.byID[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.byID {
		if ticket.TicketNumber == number {
			t := ticket
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) FindOpenTicket(ctx context.Context, submitterID, subjectID string, bucket domain.Bucket, createdAfter time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.Ticket
	for _, ticket := range r.byID {
		t := ticket
		if t.SubmitterID != submitterID || t.SubjectID != subjectID || t.Bucket != bucket {
			continue
		}
		if t.Status == domain.TicketStatusClosed || t.CreatedAt.Before(createdAfter) {
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = &t
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	return best, nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.byID {
		if filter.SubmitterID != nil && ticket.SubmitterID != *filter.SubmitterID {
			continue
		}
		if filter.SubjectID != nil && ticket.SubjectID != *filter.SubjectID {
			continue
		}
		if filter.Bucket != nil && ticket.Bucket != *filter.Bucket {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) ListByReasonSince(ctx context.Context, reasonCode string, createdAfter time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.byID {
		if ticket.CreatedAt.Before(createdAfter) {
			continue
		}
		for _, code := range ticket.AllReasonCodes() {
			if code == reasonCode {
				result = append(result, ticket)
				break
			}
		}
	}
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// fakeMessageRepo is an in-memory TicketMessageRepository.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketMessage
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *fakeMessageRepo) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	msgs, _ := r.ListByTicket(ctx, ticketID)
	return len(msgs), nil
}

// fakeQueueRepo is an in-memory QueueRepository keyed by ticket id.
type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[string]domain.QueueEntry
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: map[string]domain.QueueEntry{}}
}

func (r *fakeQueueRepo) Create(ctx context.Context, entry *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	r.entries[entry.TicketID] = *entry
	return nil
}

func (r *fakeQueueRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &entry, nil
}

func (r *fakeQueueRepo) UpdateForTicket(ctx context.Context, ticketID string, status domain.QueueStatus, slaStatus domain.SLAStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	entry.Status = status
	entry.SLAStatus = slaStatus
	entry.UpdatedAt = time.Now()
	r.entries[ticketID] = entry
	return nil
}

func (r *fakeQueueRepo) ListByDepartment(ctx context.Context, department domain.Bucket, status *domain.QueueStatus, limit, offset int) ([]domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.QueueEntry
	for _, entry := range r.entries {
		if entry.Department != department {
			continue
		}
		if status != nil && entry.Status != *status {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// fakeAlertRepo is an in-memory AlertRepository.
type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []domain.AggregationAlert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{}
}

func (r *fakeAlertRepo) Create(ctx context.Context, alert *domain.AggregationAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert.ID = uuid.NewString()
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = alert.CreatedAt
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *fakeAlertRepo) ActiveByReason(ctx context.Context, reasonCode string) (*domain.AggregationAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alert := range r.alerts {
		if alert.ReasonCode == reasonCode && alert.Status == domain.AlertStatusActive {
			a := alert
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAlertRepo) List(ctx context.Context, status *domain.AlertStatus, limit, offset int) ([]domain.AggregationAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AggregationAlert
	for _, alert := range r.alerts {
		if status != nil && alert.Status != *status {
			continue
		}
		result = append(result, alert)
	}
	return result, nil
}

// fakeCounter hands out sequential ticket numbers.
type fakeCounter struct {
	mu  sync.Mutex
	seq int
}

func (c *fakeCounter) Next(ctx context.Context, year int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq, nil
}

// recordingDispatcher collects published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// fakeNotifier records outbound notifications.
type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []notify.ScriptDelivery
	notices    []notify.SubmitterNotice
	deliverErr error
}

func (n *fakeNotifier) DeliverScript(ctx context.Context, delivery notify.ScriptDelivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deliverErr != nil {
		return n.deliverErr
	}
	n.deliveries = append(n.deliveries, delivery)
	return nil
}

func (n *fakeNotifier) NotifySubmitter(ctx context.Context, notice notify.SubmitterNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

// fakeScriptQueue records pipeline enqueues.
type fakeScriptQueue struct {
	mu     sync.Mutex
	queued []string
	accept bool
}

func (q *fakeScriptQueue) Enqueue(ticketID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.accept {
		return false
	}
	q.queued = append(q.queued, ticketID)
	return true
}
