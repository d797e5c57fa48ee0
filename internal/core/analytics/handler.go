package analytics

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/export"
)

type Handler struct {
	service  *Service
	exporter *export.Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, exporter: export.NewService()}
}

// GetDashboard godoc
// @Summary Admin dashboard statistics
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param period query string false "today, yesterday, last_7_days, this_month, last_month, last_30_days, last_90_days"
// @Success 200 {object} Dashboard
// @Router /api/admin/stats [get]
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	dashboard, err := h.service.Dashboard(c.UserContext(), c.Query("period", "last_30_days"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build dashboard")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load statistics"})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   dashboard,
	})
}

// ExportPayments godoc
// @Summary Export completed payments
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce application/pdf
// @Produce text/csv
// @Security BearerAuth
// @Param period query string false "Reporting period"
// @Param format query string false "xlsx, pdf or csv"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]interface{}
// @Router /api/admin/export/payments [get]
func (h *Handler) ExportPayments(c *fiber.Ctx) error {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	period := c.Query("period", "last_30_days")
	data, err := h.service.PaymentsReport(c.UserContext(), period)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build payments report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export payments"})
	}

	file, err := h.exporter.Export(data, format, "payments-"+period)
	if err != nil {
		log.Error().Err(err).Str("format", string(format)).Msg("Failed to render payments report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export payments"})
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	return c.Send(file.Content)
}
