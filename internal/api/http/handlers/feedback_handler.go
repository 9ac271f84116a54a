package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldlink/feedback-engine/internal/api/dto"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/service"
	apperrors "github.com/fieldlink/feedback-engine/pkg/util"
)

// FeedbackHandler accepts new feedback submissions.
type FeedbackHandler struct {
	intake *service.IntakeService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(intake *service.IntakeService) *FeedbackHandler {
	return &FeedbackHandler{intake: intake}
}

// Submit POST /feedback.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.intake.SubmitFeedback(c.UserContext(), service.SubmitInput{
		SubmitterID:  req.SubmitterID,
		SubjectID:    req.SubjectID,
		Channel:      domain.Channel(req.Channel),
		ReasonCodes:  req.ReasonCodes,
		RawText:      req.Text,
		VoiceNoteRef: req.VoiceNoteRef,
	})
	if err != nil {
		return err
	}

	if result.Merged {
		summary := bareTicketSummary(result.Ticket)
		return c.JSON(fiber.Map{"data": dto.SubmitFeedbackResponse{
			Result:         "merged",
			Ticket:         &summary,
			RoutingMessage: result.RoutingMessage,
		}})
	}

	summaries := make([]dto.TicketSummary, 0, len(result.Tickets))
	for i := range result.Tickets {
		summaries = append(summaries, bareTicketSummary(&result.Tickets[i]))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.SubmitFeedbackResponse{
		Result:         "created",
		Tickets:        summaries,
		RoutingMessage: result.RoutingMessage,
	}})
}

// bareTicketSummary maps a ticket fresh from intake, before read-side
// enrichment is available.
func bareTicketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:               ticket.ID,
		TicketNumber:     ticket.TicketNumber,
		SubmitterID:      ticket.SubmitterID,
		SubjectID:        ticket.SubjectID,
		Bucket:           ticket.Bucket,
		BucketName:       ticket.Bucket.DisplayName(),
		ReasonCode:       ticket.ReasonCode,
		SecondaryReasons: ticket.SecondaryReasons,
		Priority:         ticket.Priority,
		Sentiment:        ticket.Sentiment,
		SLAHours:         ticket.SLAHours,
		SLADeadline:      ticket.SLADeadline,
		SLAStatus:        domain.SLAStatusOnTrack,
		Status:           ticket.Status,
		ParentTicketID:   ticket.ParentTicketID,
		RelatedTicketIDs: ticket.RelatedTicketIDs,
		MergedCount:      ticket.MergedCount,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}
