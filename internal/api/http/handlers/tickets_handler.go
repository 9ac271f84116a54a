package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldlink/feedback-engine/internal/api/dto"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/service"
	apperrors "github.com/fieldlink/feedback-engine/pkg/util"
)

// TicketsHandler serves ticket lifecycle and query endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	query := parseTicketQuery(c)
	tickets, err := h.service.ListTickets(c.UserContext(), query)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:number.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	enriched, msgs, err := h.service.GetTicket(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(enriched, msgs)})
}

// Respond POST /tickets/:number/respond.
func (h *TicketsHandler) Respond(c *fiber.Ctx) error {
	var req dto.RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, queued, err := h.service.RespondToTicket(c.UserContext(), c.Params("number"), req.ResponseText, req.Responder)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RespondResponse{
		Ticket:       bareTicketSummary(ticket),
		ScriptQueued: queued,
	}})
}

// AddMessage POST /tickets/:number/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.AddThreadMessage(
		c.UserContext(),
		c.Params("number"),
		domain.MessageSenderType(req.SenderType),
		req.SenderName,
		req.Body,
		domain.MessageKind(req.Kind),
		req.AttachmentRef,
	)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// Close POST /tickets/:number/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	var req dto.ActorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CloseTicket(c.UserContext(), c.Params("number"), req.By)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bareTicketSummary(ticket)})
}

// Reopen POST /tickets/:number/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	var req dto.ActorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ReopenTicket(c.UserContext(), c.Params("number"), req.By)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bareTicketSummary(ticket)})
}

// Rate POST /tickets/:number/rating.
func (h *TicketsHandler) Rate(c *fiber.Ctx) error {
	var req dto.RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.RateScript(c.UserContext(), c.Params("number"), req.Helpful, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bareTicketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketQuery {
	query := service.TicketQuery{}
	if submitter := c.Query("submitter"); submitter != "" {
		query.SubmitterID = &submitter
	}
	if subject := c.Query("subject"); subject != "" {
		query.SubjectID = &subject
	}
	if bucketStr := c.Query("bucket"); bucketStr != "" {
		bucket := domain.Bucket(bucketStr)
		query.Bucket = &bucket
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			query.Statuses = append(query.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			query.Priorities = append(query.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	query.Offset = (page - 1) * pageSize
	query.Limit = pageSize
	return query
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(enriched *service.EnrichedTicket) dto.TicketSummary {
	ticket := &enriched.Ticket
	summary := bareTicketSummary(ticket)
	summary.BucketName = enriched.BucketName
	summary.ReasonName = enriched.ReasonName
	summary.SLAStatus = enriched.SLAStatus
	summary.MessageCount = enriched.MessageCount
	return summary
}

func ticketDetail(enriched *service.EnrichedTicket, messages []domain.TicketMessage) dto.TicketDetailResponse {
	ticket := &enriched.Ticket
	msgs := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, messageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(enriched),
		Summary:       ticket.Summary,
		RawText:       ticket.RawText,
		ResponseText:  ticket.ResponseText,
		ResponseBy:    ticket.ResponseBy,
		RespondedAt:   ticket.RespondedAt,
		ScriptText:    ticket.ScriptText,
		ScriptSentAt:  ticket.ScriptSentAt,
		Messages:      msgs,
	}
}

func messageResponse(msg *domain.TicketMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:            msg.ID,
		SenderType:    msg.SenderType,
		SenderName:    msg.SenderName,
		Kind:          msg.Kind,
		Body:          msg.Body,
		AttachmentRef: msg.AttachmentRef,
		CreatedAt:     msg.CreatedAt,
	}
}
