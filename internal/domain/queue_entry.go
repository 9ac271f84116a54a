package domain

import "time"

// QueueStatus tracks department-side triage state.
type QueueStatus string

const (
	QueueStatusOpen       QueueStatus = "open"
	QueueStatusInProgress QueueStatus = "in_progress"
	QueueStatusResponded  QueueStatus = "responded"
	QueueStatusEscalated  QueueStatus = "escalated"
	QueueStatusClosed     QueueStatus = "closed"
)

// SLAStatus is the derived position of a ticket against its deadline.
type SLAStatus string

const (
	SLAStatusOnTrack   SLAStatus = "on_track"
	SLAStatusWarning   SLAStatus = "warning"
	SLAStatusBreached  SLAStatus = "breached"
	SLAStatusCompleted SLAStatus = "completed"
)

// QueueEntry mirrors a ticket inside its department queue. One per
// ticket, updated in lockstep with the ticket's status.
type QueueEntry struct {
	ID              string
	TicketID        string
	Department      Bucket
	AssignedTo      *string
	Status          QueueStatus
	SLAStatus       SLAStatus
	EscalationLevel int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
