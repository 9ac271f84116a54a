package domain

import "time"

// AlertStatus tracks the review state of an aggregation alert.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusReviewed AlertStatus = "reviewed"
	AlertStatusResolved AlertStatus = "resolved"
)

// AggregationAlert is a cross-ticket pattern signal. At most one active
// alert exists per reason code at any time.
type AggregationAlert struct {
	ID                 string
	PatternType        string
	Description        string
	ReasonCode         string
	Bucket             Bucket
	AffectedSubmitters int
	AffectedSubjects   int
	TicketIDs          []string
	Status             AlertStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
