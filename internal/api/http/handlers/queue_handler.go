package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldlink/feedback-engine/internal/api/dto"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/service"
)

// QueueHandler serves department queue views.
type QueueHandler struct {
	service *service.TicketService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(ticketService *service.TicketService) *QueueHandler {
	return &QueueHandler{service: ticketService}
}

// Department GET /queue/:department.
func (h *QueueHandler) Department(c *fiber.Ctx) error {
	department := domain.Bucket(c.Params("department"))

	var status *domain.QueueStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := domain.QueueStatus(statusStr)
		status = &s
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	items, err := h.service.DepartmentQueue(c.UserContext(), department, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}

	result := make([]dto.QueueItemResponse, 0, len(items))
	for i := range items {
		result = append(result, dto.QueueItemResponse{
			Ticket:          ticketSummary(&items[i].Ticket),
			AssignedTo:      items[i].Entry.AssignedTo,
			QueueStatus:     items[i].Entry.Status,
			QueueSLAStatus:  items[i].Entry.SLAStatus,
			EscalationLevel: items[i].Entry.EscalationLevel,
		})
	}
	return c.JSON(fiber.Map{"data": result})
}
