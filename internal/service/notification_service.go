package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/events"
)

// NotificationService observes domain events for operational logging.
// Submitter-facing notifications and script delivery go through the
// notify client directly; this service gives every event a log line.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketMerged, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventDepartmentResponded, n.logEvent)
	n.dispatcher.Subscribe(events.EventScriptDelivered, n.logEvent)
	n.dispatcher.Subscribe(events.EventAggregationAlertRaised, n.logEvent)
}

func (n *NotificationService) logEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
