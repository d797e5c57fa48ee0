package audit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetLogs godoc
// @Summary List audit logs
// @Description Paginated audit trail, newest first (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "Filter by user"
// @Param action query string false "Filter by action"
// @Param entity query string false "Filter by entity type"
// @Param entity_id query string false "Filter by entity id"
// @Param from query string false "RFC3339 start time"
// @Param to query string false "RFC3339 end time"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} AuditLogResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/admin/audit [get]
func (h *Handler) GetLogs(c *fiber.Ctx) error {
	filter := AuditFilter{
		Action:   c.Query("action"),
		Entity:   c.Query("entity"),
		EntityID: c.Query("entity_id"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 50),
	}

	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user_id"})
		}
		filter.UserID = &id
	}
	for param, dst := range map[string]**time.Time{"from": &filter.StartDate, "to": &filter.EndDate} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid " + param + " timestamp"})
		}
		*dst = &ts
	}

	resp, err := h.service.GetLogs(c.UserContext(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get audit logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get audit logs"})
	}
	return c.JSON(resp)
}

// GetStats godoc
// @Summary Audit action counts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param days query int false "Look-back window in days" default(30)
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/audit/stats [get]
func (h *Handler) GetStats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	stats, err := h.service.GetActionStats(c.UserContext(), &since)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get audit stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get audit stats"})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"since":   since,
		"actions": stats,
	})
}
