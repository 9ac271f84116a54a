package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/llm"
	"github.com/fieldlink/feedback-engine/internal/notify"
	"github.com/fieldlink/feedback-engine/internal/pipeline"
	"github.com/fieldlink/feedback-engine/internal/repository"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
)

type stubTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func (r *stubTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error { return nil }

func (r *stubTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *stubTicketRepo) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubTicketRepo) FindOpenTicket(ctx context.Context, submitterID, subjectID string, bucket domain.Bucket, createdAfter time.Time) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

func (r *stubTicketRepo) ListByReasonSince(ctx context.Context, reasonCode string, createdAfter time.Time) ([]domain.Ticket, error) {
	return nil, nil
}

type stubMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
}

func (r *stubMessageRepo) Create(ctx context.Context, msg *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *stubMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	return nil, nil
}

func (r *stubMessageRepo) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	return 0, nil
}

type stubLLM struct {
	script string
	err    error
}

func (s *stubLLM) Classify(ctx context.Context, req llm.ClassifyRequest) (*llm.ClassifyResult, error) {
	return nil, llm.ErrUnavailable
}

func (s *stubLLM) GenerateScript(ctx context.Context, req llm.ScriptRequest) (string, error) {
	return s.script, s.err
}

type stubNotifier struct {
	mu         sync.Mutex
	deliveries []notify.ScriptDelivery
	err        error
}

func (n *stubNotifier) DeliverScript(ctx context.Context, delivery notify.ScriptDelivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.deliveries = append(n.deliveries, delivery)
	return nil
}

func (n *stubNotifier) NotifySubmitter(ctx context.Context, notice notify.SubmitterNotice) error {
	return nil
}

type stubQueueRepo struct {
	mu      sync.Mutex
	updates []struct {
		TicketID  string
		Status    domain.QueueStatus
		SLAStatus domain.SLAStatus
	}
}

func (r *stubQueueRepo) Create(ctx context.Context, entry *domain.QueueEntry) error { return nil }

func (r *stubQueueRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.QueueEntry, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubQueueRepo) UpdateForTicket(ctx context.Context, ticketID string, status domain.QueueStatus, slaStatus domain.SLAStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, struct {
		TicketID  string
		Status    domain.QueueStatus
		SLAStatus domain.SLAStatus
	}{ticketID, status, slaStatus})
	return nil
}

func (r *stubQueueRepo) ListByDepartment(ctx context.Context, department domain.Bucket, status *domain.QueueStatus, limit, offset int) ([]domain.QueueEntry, error) {
	return nil, nil
}

type stubTaxonomySource struct{}

func (stubTaxonomySource) ListAll(ctx context.Context) ([]domain.ReasonTaxonomyEntry, error) {
	return []domain.ReasonTaxonomyEntry{
		{Code: "UW-01", Bucket: domain.BucketUnderwriting, DisplayName: "Policy application stalled"},
	}, nil
}

func respondedTicket() domain.Ticket {
	response := "The case was released today."
	now := time.Now()
	return domain.Ticket{
		ID:           "t-1",
		TicketNumber: "FBK-2026-00001",
		SubmitterID:  "broker-1",
		SubjectID:    "agent-7",
		Bucket:       domain.BucketUnderwriting,
		ReasonCode:   "UW-01",
		Status:       domain.TicketStatusResponded,
		ResponseText: &response,
		ResponseBy:   strPtr("uw-desk"),
		RespondedAt:  &now,
	}
}

func strPtr(s string) *string { return &s }

// runOne feeds a single ticket through the pipeline and waits for the
// worker to drain.
func runOne(t *testing.T, tickets *stubTicketRepo, messages *stubMessageRepo, queue *stubQueueRepo, ai llm.Client, notifier notify.Notifier) {
	t.Helper()

	taxRepo := taxonomy.NewRepository(stubTaxonomySource{}, zap.NewNop())
	require.NoError(t, taxRepo.Load(context.Background()))

	p := pipeline.New(pipeline.Dependencies{
		TicketRepo:    tickets,
		MessageRepo:   messages,
		QueueRepo:     queue,
		Taxonomy:      taxRepo,
		LLM:           ai,
		Notifier:      notifier,
		Logger:        zap.NewNop(),
		ScriptTimeout: time.Second,
		QueueSize:     4,
	})
	p.Start(1)
	require.True(t, p.Enqueue("t-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestPipelineDeliversAIScript(t *testing.T) {
	tickets := &stubTicketRepo{tickets: map[string]domain.Ticket{"t-1": respondedTicket()}}
	messages := &stubMessageRepo{}
	queue := &stubQueueRepo{}
	notifier := &stubNotifier{}

	runOne(t, tickets, messages, queue, &stubLLM{script: "Hello broker-1, good news."}, notifier)

	stored, err := tickets.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusScriptSent, stored.Status)
	require.NotNil(t, stored.ScriptText)
	assert.Equal(t, "Hello broker-1, good news.", *stored.ScriptText)
	require.NotNil(t, stored.ScriptSentAt)

	require.Len(t, notifier.deliveries, 1)
	assert.Equal(t, "FBK-2026-00001", notifier.deliveries[0].TicketNumber)

	require.Len(t, messages.messages, 1)
	assert.Equal(t, domain.MessageKindScript, messages.messages[0].Kind)
	assert.Equal(t, domain.SenderTypeAssistant, messages.messages[0].SenderType)

	require.Len(t, queue.updates, 1)
	assert.Equal(t, "t-1", queue.updates[0].TicketID)
	assert.Equal(t, domain.QueueStatusResponded, queue.updates[0].Status)
	assert.Equal(t, domain.SLAStatusCompleted, queue.updates[0].SLAStatus)
}

func TestPipelineFallsBackToTemplate(t *testing.T) {
	tickets := &stubTicketRepo{tickets: map[string]domain.Ticket{"t-1": respondedTicket()}}
	messages := &stubMessageRepo{}
	notifier := &stubNotifier{}

	runOne(t, tickets, messages, &stubQueueRepo{}, &stubLLM{err: errors.New("model timeout")}, notifier)

	stored, err := tickets.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusScriptSent, stored.Status)
	require.NotNil(t, stored.ScriptText)
	assert.Contains(t, *stored.ScriptText, "broker-1")
	assert.Contains(t, *stored.ScriptText, "Policy application stalled")
	assert.Contains(t, *stored.ScriptText, "The case was released today.")
}

func TestPipelineDeliveryFailureLeavesScriptGenerated(t *testing.T) {
	tickets := &stubTicketRepo{tickets: map[string]domain.Ticket{"t-1": respondedTicket()}}
	messages := &stubMessageRepo{}
	queue := &stubQueueRepo{}
	notifier := &stubNotifier{err: errors.New("webhook down")}

	runOne(t, tickets, messages, queue, &stubLLM{script: "Hello."}, notifier)

	stored, err := tickets.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusScriptGenerated, stored.Status)
	assert.Nil(t, stored.ScriptSentAt)
	assert.Empty(t, queue.updates)
}

func TestPipelineSkipsTicketNotInRespondedState(t *testing.T) {
	ticket := respondedTicket()
	ticket.Status = domain.TicketStatusRouted
	tickets := &stubTicketRepo{tickets: map[string]domain.Ticket{"t-1": ticket}}
	messages := &stubMessageRepo{}
	notifier := &stubNotifier{}

	runOne(t, tickets, messages, &stubQueueRepo{}, &stubLLM{script: "Hello."}, notifier)

	stored, err := tickets.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRouted, stored.Status)
	assert.Nil(t, stored.ScriptText)
	assert.Empty(t, notifier.deliveries)
}

func TestEnqueueFullQueue(t *testing.T) {
	p := pipeline.New(pipeline.Dependencies{
		Logger:    zap.NewNop(),
		QueueSize: 1,
	})
	// No workers running, so the second enqueue overflows.
	assert.True(t, p.Enqueue("t-1"))
	assert.False(t, p.Enqueue("t-2"))
}

func TestEnqueueAfterShutdown(t *testing.T) {
	p := pipeline.New(pipeline.Dependencies{
		Logger:    zap.NewNop(),
		QueueSize: 1,
	})
	p.Start(1)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.Enqueue("t-1"))
}
