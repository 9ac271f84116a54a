package sla_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/sla"
)

func TestHoursFor(t *testing.T) {
	calc := sla.NewCalculator(0.25)

	assert.Equal(t, 48, calc.HoursFor(domain.BucketUnderwriting, domain.TicketPriorityMedium))
	assert.Equal(t, 24, calc.HoursFor(domain.BucketUnderwriting, domain.TicketPriorityHigh))
	assert.Equal(t, 8, calc.HoursFor(domain.BucketFinance, domain.TicketPriorityCritical))
	assert.Equal(t, 72, calc.HoursFor(domain.BucketOperations, domain.TicketPriorityMedium))
	assert.Equal(t, 120, calc.HoursFor(domain.BucketProduct, domain.TicketPriorityLow))

	// Unknown combinations fall back to the default budget.
	assert.Equal(t, sla.DefaultHours, calc.HoursFor(domain.Bucket("unknown"), domain.TicketPriorityMedium))
	assert.Equal(t, sla.DefaultHours, calc.HoursFor(domain.BucketFinance, domain.TicketPriority("urgent-ish")))
}

func TestDeadline(t *testing.T) {
	calc := sla.NewCalculator(0.25)
	from := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	deadline, hours := calc.Deadline(domain.BucketUnderwriting, domain.TicketPriorityHigh, from)
	assert.Equal(t, 24, hours)
	assert.Equal(t, from.Add(24*time.Hour), deadline)
}

func TestStatusAt(t *testing.T) {
	calc := sla.NewCalculator(0.25)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	base := domain.Ticket{
		Status:      domain.TicketStatusRouted,
		SLAHours:    48,
		SLADeadline: now.Add(48 * time.Hour),
	}

	t.Run("on track well before the warning window", func(t *testing.T) {
		ticket := base
		assert.Equal(t, domain.SLAStatusOnTrack, calc.StatusAt(&ticket, now))
	})

	t.Run("warning inside the final quarter of the window", func(t *testing.T) {
		ticket := base
		// 48h window, warning starts 12h before the deadline.
		assert.Equal(t, domain.SLAStatusWarning, calc.StatusAt(&ticket, now.Add(37*time.Hour)))
	})

	t.Run("breached after the deadline", func(t *testing.T) {
		ticket := base
		assert.Equal(t, domain.SLAStatusBreached, calc.StatusAt(&ticket, now.Add(49*time.Hour)))
	})

	t.Run("responded tickets always read completed", func(t *testing.T) {
		for _, status := range []domain.TicketStatus{
			domain.TicketStatusResponded,
			domain.TicketStatusScriptGenerated,
			domain.TicketStatusScriptSent,
			domain.TicketStatusClosed,
		} {
			ticket := base
			ticket.Status = status
			// Even past the deadline the resolved state wins.
			assert.Equal(t, domain.SLAStatusCompleted, calc.StatusAt(&ticket, now.Add(100*time.Hour)))
		}
	})
}

func TestRespondedWithinSLA(t *testing.T) {
	calc := sla.NewCalculator(0.25)
	deadline := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	early := deadline.Add(-time.Hour)
	late := deadline.Add(time.Hour)

	assert.True(t, calc.RespondedWithinSLA(&domain.Ticket{SLADeadline: deadline, RespondedAt: &early}))
	assert.False(t, calc.RespondedWithinSLA(&domain.Ticket{SLADeadline: deadline, RespondedAt: &late}))
	assert.False(t, calc.RespondedWithinSLA(&domain.Ticket{SLADeadline: deadline}))
}

func TestNewCalculatorClampsWarningFraction(t *testing.T) {
	calc := sla.NewCalculator(3.0)
	now := time.Now()
	ticket := domain.Ticket{
		Status:      domain.TicketStatusRouted,
		SLAHours:    48,
		SLADeadline: now.Add(48 * time.Hour),
	}
	// An out-of-range fraction falls back to 0.25, so a fresh ticket is on track.
	assert.Equal(t, domain.SLAStatusOnTrack, calc.StatusAt(&ticket, now))
}
