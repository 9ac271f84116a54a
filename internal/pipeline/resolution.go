package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/events"
	"github.com/fieldlink/feedback-engine/internal/llm"
	"github.com/fieldlink/feedback-engine/internal/notify"
	"github.com/fieldlink/feedback-engine/internal/repository"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
)

// Pipeline turns department responses into delivered communication
// scripts. Work runs on a fixed pool of workers fed by a channel, off
// the request path; every job error is caught and logged.
type Pipeline struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	queue      repository.QueueRepository
	taxonomy   *taxonomy.Repository
	llm        llm.Client
	notifier   notify.Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger

	scriptTimeout time.Duration
	jobs          chan string
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

// Dependencies bundles collaborators for the pipeline.
type Dependencies struct {
	TicketRepo    repository.TicketRepository
	MessageRepo   repository.TicketMessageRepository
	QueueRepo     repository.QueueRepository
	Taxonomy      *taxonomy.Repository
	LLM           llm.Client
	Notifier      notify.Notifier
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	ScriptTimeout time.Duration
	QueueSize     int
}

// New constructs a stopped pipeline. Call Start to launch workers.
func New(deps Dependencies) *Pipeline {
	size := deps.QueueSize
	if size <= 0 {
		size = 256
	}
	timeout := deps.ScriptTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Pipeline{
		tickets:       deps.TicketRepo,
		messages:      deps.MessageRepo,
		queue:         deps.QueueRepo,
		taxonomy:      deps.Taxonomy,
		llm:           deps.LLM,
		notifier:      deps.Notifier,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		scriptTimeout: timeout,
		jobs:          make(chan string, size),
	}
}

// Start launches the worker pool.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Enqueue submits a ticket for script generation. Returns false when the
// queue is full or closed; the caller logs and moves on, since the
// ticket can be re-queued by a later manual response.
func (p *Pipeline) Enqueue(ticketID string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case p.jobs <- ticketID:
		return true
	default:
		return false
	}
}

// Shutdown stops intake and waits for in-flight jobs to drain, bounded
// by ctx.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.jobs) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for ticketID := range p.jobs {
		p.runJob(ticketID)
	}
}

// runJob processes one ticket end to end. It must never panic the
// worker and never lets a failure escape as anything but a log line.
func (p *Pipeline) runJob(ticketID string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("resolution job panicked", zap.String("ticket_id", ticketID), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.scriptTimeout+30*time.Second)
	defer cancel()

	ticket, err := p.tickets.GetByID(ctx, ticketID)
	if err != nil {
		p.logger.Error("resolution job: load ticket failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	if ticket.Status != domain.TicketStatusResponded {
		p.logger.Warn("resolution job: ticket not in responded state; skipping",
			zap.String("ticket", ticket.TicketNumber), zap.String("status", string(ticket.Status)))
		return
	}

	script := p.generateScript(ctx, ticket)

	ticket.ScriptText = &script
	ticket.Status = domain.TicketStatusScriptGenerated
	if err := p.tickets.Update(ctx, ticket); err != nil {
		p.logger.Error("resolution job: persist script failed", zap.String("ticket", ticket.TicketNumber), zap.Error(err))
		return
	}
	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeAssistant,
		SenderName: "resolution",
		Kind:       domain.MessageKindScript,
		Body:       script,
	}
	if err := p.messages.Create(ctx, msg); err != nil {
		p.logger.Error("resolution job: append script message failed", zap.String("ticket", ticket.TicketNumber), zap.Error(err))
	}

	p.deliver(ctx, ticket, script)
}

// generateScript tries the AI path under a hard timeout, then falls
// back to the deterministic template. Always returns a script.
func (p *Pipeline) generateScript(ctx context.Context, ticket *domain.Ticket) string {
	if p.llm != nil {
		genCtx, cancel := context.WithTimeout(ctx, p.scriptTimeout)
		defer cancel()

		script, err := p.llm.GenerateScript(genCtx, llm.ScriptRequest{
			SubmitterName: ticket.SubmitterID,
			SubjectName:   ticket.SubjectID,
			Bucket:        string(ticket.Bucket),
			ReasonName:    p.taxonomy.DisplayName(ticket.ReasonCode),
			ResponseText:  responseText(ticket),
		})
		if err == nil && script != "" {
			return script
		}
		p.logger.Warn("ai script generation failed; using template",
			zap.String("ticket", ticket.TicketNumber), zap.Error(err))
	}
	return fallbackScript(ticket, p.taxonomy.DisplayName(ticket.ReasonCode))
}

// deliver pushes the script to the subject's notification channel.
// Delivery is at-most-once: on failure the ticket stays
// script_generated and a later manual action can retry.
func (p *Pipeline) deliver(ctx context.Context, ticket *domain.Ticket, script string) {
	if p.notifier == nil {
		return
	}
	err := p.notifier.DeliverScript(ctx, notify.ScriptDelivery{
		TicketNumber: ticket.TicketNumber,
		SubmitterID:  ticket.SubmitterID,
		SubjectID:    ticket.SubjectID,
		Script:       script,
	})
	if err != nil {
		p.logger.Warn("script delivery failed; ticket remains script_generated",
			zap.String("ticket", ticket.TicketNumber), zap.Error(err))
		return
	}

	now := time.Now()
	ticket.ScriptSentAt = &now
	ticket.Status = domain.TicketStatusScriptSent
	if err := p.tickets.Update(ctx, ticket); err != nil {
		p.logger.Error("resolution job: persist delivery failed", zap.String("ticket", ticket.TicketNumber), zap.Error(err))
		return
	}
	// Delivery ends the department's involvement; mark its queue entry
	// settled even if a reopen touched the row after the response.
	if p.queue != nil {
		if err := p.queue.UpdateForTicket(ctx, ticket.ID, domain.QueueStatusResponded, domain.SLAStatusCompleted); err != nil {
			p.logger.Warn("resolution job: queue update failed", zap.String("ticket", ticket.TicketNumber), zap.Error(err))
		}
	}

	if p.dispatcher != nil {
		_ = p.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventScriptDelivered,
			TicketID:  ticket.ID,
			Timestamp: now,
			Payload: events.ScriptDeliveredPayload{
				TicketNumber: ticket.TicketNumber,
				SubjectID:    ticket.SubjectID,
			},
		})
	}
	p.logger.Info("script delivered", zap.String("ticket", ticket.TicketNumber))
}

func responseText(ticket *domain.Ticket) string {
	if ticket.ResponseText == nil {
		return ""
	}
	return *ticket.ResponseText
}

// fallbackScript interpolates the department response into a fixed
// empathetic frame. Never fails, so script generation always completes.
func fallbackScript(ticket *domain.Ticket, reasonName string) string {
	return fmt.Sprintf(
		"Hello %s,\n\n"+
			"Thank you for raising your concern regarding %s. We appreciate you flagging this, and we understand how it affects your work with %s.\n\n"+
			"The %s team has reviewed ticket %s and shared the following:\n\n%s\n\n"+
			"If anything remains unclear, reply on this ticket and we will follow up. Thank you for your patience.",
		ticket.SubmitterID,
		reasonName,
		ticket.SubjectID,
		ticket.Bucket.DisplayName(),
		ticket.TicketNumber,
		responseText(ticket),
	)
}
