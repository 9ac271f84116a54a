package events

import (
	"time"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "feedback_ticket_created"
	EventTicketMerged           EventType = "feedback_ticket_merged"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventDepartmentResponded    EventType = "department_responded"
	EventScriptDelivered        EventType = "script_delivered"
	EventAggregationAlertRaised EventType = "aggregation_alert_raised"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Bucket       domain.Bucket         `json:"bucket"`
	ReasonCode   string                `json:"reason_code"`
	Priority     domain.TicketPriority `json:"priority"`
	SubmitterID  string                `json:"submitter_id"`
	SubjectID    string                `json:"subject_id"`
}

// TicketMergedPayload payload.
type TicketMergedPayload struct {
	TicketNumber string   `json:"ticket_number"`
	AddedCodes   []string `json:"added_codes,omitempty"`
	MergedCount  int      `json:"merged_count"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// DepartmentRespondedPayload payload.
type DepartmentRespondedPayload struct {
	TicketNumber string `json:"ticket_number"`
	ResponseBy   string `json:"response_by"`
}

// ScriptDeliveredPayload payload.
type ScriptDeliveredPayload struct {
	TicketNumber string `json:"ticket_number"`
	SubjectID    string `json:"subject_id"`
}

// AggregationAlertRaisedPayload payload.
type AggregationAlertRaisedPayload struct {
	AlertID     string        `json:"alert_id"`
	ReasonCode  string        `json:"reason_code"`
	Bucket      domain.Bucket `json:"bucket"`
	TicketCount int           `json:"ticket_count"`
}
