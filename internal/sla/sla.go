package sla

import (
	"time"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// DefaultHours is the conservative budget for unknown combinations.
const DefaultHours = 48

type matrixKey struct {
	bucket   domain.Bucket
	priority domain.TicketPriority
}

// responseHours maps (bucket, priority) to a response-hour budget.
// Business-owned values; tune via taxonomy default hours where a code
// carries its own budget.
var responseHours = map[matrixKey]int{
	{domain.BucketUnderwriting, domain.TicketPriorityLow}:      72,
	{domain.BucketUnderwriting, domain.TicketPriorityMedium}:   48,
	{domain.BucketUnderwriting, domain.TicketPriorityHigh}:     24,
	{domain.BucketUnderwriting, domain.TicketPriorityCritical}: 8,

	{domain.BucketFinance, domain.TicketPriorityLow}:      72,
	{domain.BucketFinance, domain.TicketPriorityMedium}:   48,
	{domain.BucketFinance, domain.TicketPriorityHigh}:     24,
	{domain.BucketFinance, domain.TicketPriorityCritical}: 8,

	{domain.BucketOperations, domain.TicketPriorityLow}:      96,
	{domain.BucketOperations, domain.TicketPriorityMedium}:   72,
	{domain.BucketOperations, domain.TicketPriorityHigh}:     48,
	{domain.BucketOperations, domain.TicketPriorityCritical}: 12,

	{domain.BucketProduct, domain.TicketPriorityLow}:      120,
	{domain.BucketProduct, domain.TicketPriorityMedium}:   72,
	{domain.BucketProduct, domain.TicketPriorityHigh}:     48,
	{domain.BucketProduct, domain.TicketPriorityCritical}: 24,

	{domain.BucketEngagement, domain.TicketPriorityLow}:      96,
	{domain.BucketEngagement, domain.TicketPriorityMedium}:   72,
	{domain.BucketEngagement, domain.TicketPriorityHigh}:     48,
	{domain.BucketEngagement, domain.TicketPriorityCritical}: 24,
}

// Calculator computes SLA budgets, deadlines and derived statuses.
type Calculator struct {
	warningFraction float64
}

// NewCalculator builds a calculator. warningFraction is the final slice
// of the window reported as "warning" before breach, e.g. 0.25.
func NewCalculator(warningFraction float64) *Calculator {
	if warningFraction <= 0 || warningFraction >= 1 {
		warningFraction = 0.25
	}
	return &Calculator{warningFraction: warningFraction}
}

// HoursFor returns the response-hour budget for a bucket and priority.
func (c *Calculator) HoursFor(bucket domain.Bucket, priority domain.TicketPriority) int {
	if hours, ok := responseHours[matrixKey{bucket, priority}]; ok {
		return hours
	}
	return DefaultHours
}

// Deadline computes a fresh deadline from the given instant. Deadlines
// are always recomputed whole, never incrementally adjusted.
func (c *Calculator) Deadline(bucket domain.Bucket, priority domain.TicketPriority, from time.Time) (time.Time, int) {
	hours := c.HoursFor(bucket, priority)
	return from.Add(time.Duration(hours) * time.Hour), hours
}

// StatusAt derives the non-persisted SLA status of a ticket at the given
// instant. Resolution at any point counts as completed; timing
// compliance is tracked separately against RespondedAt.
func (c *Calculator) StatusAt(ticket *domain.Ticket, now time.Time) domain.SLAStatus {
	switch ticket.Status {
	case domain.TicketStatusResponded, domain.TicketStatusScriptGenerated,
		domain.TicketStatusScriptSent, domain.TicketStatusClosed:
		return domain.SLAStatusCompleted
	}
	if now.After(ticket.SLADeadline) {
		return domain.SLAStatusBreached
	}
	window := time.Duration(ticket.SLAHours) * time.Hour
	warningStart := ticket.SLADeadline.Add(-time.Duration(float64(window) * c.warningFraction))
	if now.After(warningStart) {
		return domain.SLAStatusWarning
	}
	return domain.SLAStatusOnTrack
}

// RespondedWithinSLA reports whether the department reply beat the deadline.
func (c *Calculator) RespondedWithinSLA(ticket *domain.Ticket) bool {
	if ticket.RespondedAt == nil {
		return false
	}
	return !ticket.RespondedAt.After(ticket.SLADeadline)
}
