package jobs

import (
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

// GetStats godoc
// @Summary Job queue statistics
// @Description Jobs per status and type with the average queue wait (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "Limit to one user"
// @Success 200 {object} JobStats
// @Failure 400 {object} map[string]interface{}
// @Router /api/admin/jobs/stats [get]
func (h *Handler) GetStats(c *fiber.Ctx) error {
	var userID *uuid.UUID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user_id"})
		}
		userID = &id
	}

	stats, err := h.service.GetStats(c.UserContext(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get job stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get job stats"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
