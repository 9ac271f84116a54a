package domain

import "time"

// MessageSenderType indicates who authored a thread message.
type MessageSenderType string

const (
	SenderTypeSubmitter  MessageSenderType = "submitter"
	SenderTypeDepartment MessageSenderType = "department"
	SenderTypeSystem     MessageSenderType = "system"
	SenderTypeAssistant  MessageSenderType = "assistant"
)

// MessageKind differentiates thread entries.
type MessageKind string

const (
	MessageKindText          MessageKind = "text"
	MessageKindVoice         MessageKind = "voice"
	MessageKindScript        MessageKind = "script"
	MessageKindStatusChange  MessageKind = "status_change"
	MessageKindClarification MessageKind = "clarification_request"
)

// TicketMessage is one append-only entry in a ticket's conversation
// thread. Entries are never mutated or deleted; ordering is by CreatedAt.
type TicketMessage struct {
	ID            string
	TicketID      string
	SenderType    MessageSenderType
	SenderName    string
	Kind          MessageKind
	Body          string
	AttachmentRef *string
	CreatedAt     time.Time
}
