package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldlink/feedback-engine/internal/api/dto"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/service"
)

// AlertsHandler serves aggregation alert queries.
type AlertsHandler struct {
	service *service.AggregationService
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(aggregationService *service.AggregationService) *AlertsHandler {
	return &AlertsHandler{service: aggregationService}
}

// List GET /alerts.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	var status *domain.AlertStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := domain.AlertStatus(statusStr)
		status = &s
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	alerts, err := h.service.ListAlerts(c.UserContext(), status, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}

	result := make([]dto.AlertResponse, 0, len(alerts))
	for _, item := range alerts {
		result = append(result, dto.AlertResponse{
			ID:                 item.Alert.ID,
			PatternType:        item.Alert.PatternType,
			Description:        item.Alert.Description,
			ReasonCode:         item.Alert.ReasonCode,
			ReasonName:         item.ReasonName,
			Bucket:             item.Alert.Bucket,
			AffectedSubmitters: item.Alert.AffectedSubmitters,
			AffectedSubjects:   item.Alert.AffectedSubjects,
			TicketIDs:          item.Alert.TicketIDs,
			Status:             item.Alert.Status,
			CreatedAt:          item.Alert.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": result})
}
