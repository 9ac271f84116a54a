package dto

import (
	"time"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// SubmitFeedbackRequest payload.
type SubmitFeedbackRequest struct {
	SubmitterID  string   `json:"submitter_id"`
	SubjectID    string   `json:"subject_id"`
	Channel      string   `json:"channel"`
	ReasonCodes  []string `json:"reason_codes"`
	Text         string   `json:"text"`
	VoiceNoteRef *string  `json:"voice_note_ref"`
}

// SubmitFeedbackResponse reports either a merge or created tickets.
type SubmitFeedbackResponse struct {
	Result         string          `json:"result"`
	Ticket         *TicketSummary  `json:"ticket,omitempty"`
	Tickets        []TicketSummary `json:"tickets,omitempty"`
	RoutingMessage string          `json:"routing_message"`
}

// RespondRequest payload for a department reply.
type RespondRequest struct {
	ResponseText string `json:"response_text"`
	Responder    string `json:"responder"`
}

// RespondResponse confirms the reply and the queued script generation.
type RespondResponse struct {
	Ticket       TicketSummary `json:"ticket"`
	ScriptQueued bool          `json:"script_queued"`
}

// CreateMessageRequest appends to the conversation thread.
type CreateMessageRequest struct {
	SenderType    string  `json:"sender_type"`
	SenderName    string  `json:"sender_name"`
	Kind          string  `json:"kind"`
	Body          string  `json:"body"`
	AttachmentRef *string `json:"attachment_ref"`
}

// ActorRequest carries the acting identity for close/reopen.
type ActorRequest struct {
	By string `json:"by"`
}

// RatingRequest records the submitter's script verdict.
type RatingRequest struct {
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment"`
}

// TicketSummary response.
type TicketSummary struct {
	ID               string                `json:"id"`
	TicketNumber     string                `json:"ticket_number"`
	SubmitterID      string                `json:"submitter_id"`
	SubjectID        string                `json:"subject_id"`
	Bucket           domain.Bucket         `json:"bucket"`
	BucketName       string                `json:"bucket_name"`
	ReasonCode       string                `json:"reason_code"`
	ReasonName       string                `json:"reason_name"`
	SecondaryReasons []string              `json:"secondary_reasons,omitempty"`
	Priority         domain.TicketPriority `json:"priority"`
	Sentiment        domain.Sentiment      `json:"sentiment"`
	SLAHours         int                   `json:"sla_hours"`
	SLADeadline      time.Time             `json:"sla_deadline"`
	SLAStatus        domain.SLAStatus      `json:"sla_status"`
	Status           domain.TicketStatus   `json:"status"`
	MessageCount     int                   `json:"message_count"`
	ParentTicketID   *string               `json:"parent_ticket_id,omitempty"`
	RelatedTicketIDs []string              `json:"related_ticket_ids,omitempty"`
	MergedCount      int                   `json:"merged_count"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with thread.
type TicketDetailResponse struct {
	TicketSummary
	Summary      string            `json:"summary"`
	RawText      string            `json:"raw_text"`
	ResponseText *string           `json:"response_text,omitempty"`
	ResponseBy   *string           `json:"response_by,omitempty"`
	RespondedAt  *time.Time        `json:"responded_at,omitempty"`
	ScriptText   *string           `json:"script_text,omitempty"`
	ScriptSentAt *time.Time        `json:"script_sent_at,omitempty"`
	Messages     []MessageResponse `json:"messages"`
}

// MessageResponse represents one thread entry.
type MessageResponse struct {
	ID            string                   `json:"id"`
	SenderType    domain.MessageSenderType `json:"sender_type"`
	SenderName    string                   `json:"sender_name"`
	Kind          domain.MessageKind       `json:"kind"`
	Body          string                   `json:"body"`
	AttachmentRef *string                  `json:"attachment_ref,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// QueueItemResponse annotates a ticket with queue-specific fields.
type QueueItemResponse struct {
	Ticket          TicketSummary      `json:"ticket"`
	AssignedTo      *string            `json:"assigned_to,omitempty"`
	QueueStatus     domain.QueueStatus `json:"queue_status"`
	QueueSLAStatus  domain.SLAStatus   `json:"queue_sla_status"`
	EscalationLevel int                `json:"escalation_level"`
}

// AlertResponse represents one aggregation alert.
type AlertResponse struct {
	ID                 string             `json:"id"`
	PatternType        string             `json:"pattern_type"`
	Description        string             `json:"description"`
	ReasonCode         string             `json:"reason_code"`
	ReasonName         string             `json:"reason_name"`
	Bucket             domain.Bucket      `json:"bucket"`
	AffectedSubmitters int                `json:"affected_submitters"`
	AffectedSubjects   int                `json:"affected_subjects"`
	TicketIDs          []string           `json:"ticket_ids"`
	Status             domain.AlertStatus `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
}
