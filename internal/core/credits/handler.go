package credits

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// DeductRequest is the body of POST /api/credits/deduct. Credits defaults to 1.
type DeductRequest struct {
	Credits   *int                   `json:"credits"`
	Operation string                 `json:"operation,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AddRequest is the body of the admin top-up endpoint.
type AddRequest struct {
	Credits int    `json:"credits"`
	Reason  string `json:"reason"`
}

// GetCredits godoc
// @Summary Get credit balance
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/credits [get]
func (h *Handler) GetCredits(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	balance, err := h.service.Balance(c.UserContext(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to get credits")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get credits",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"credits": balance,
		"userId":  userID.String(),
	})
}

// DeductCredits godoc
// @Summary Deduct credits
// @Description Spend credits from the caller's balance. Defaults to 1 credit.
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeductRequest false "Amount to deduct"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/credits/deduct [post]
func (h *Handler) DeductCredits(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req DeductRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}
	amount := 1
	if req.Credits != nil {
		amount = *req.Credits
	}

	remaining, err := h.service.Deduct(c.UserContext(), userID, amount, req.Operation, req.Metadata)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{
			"success":          true,
			"creditsRemaining": remaining,
		})
	case errors.Is(err, ErrInsufficientCredits), errors.Is(err, ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to deduct credits")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deduct credits",
		})
	}
}

// History godoc
// @Summary Credit usage history
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows (default 100)"
// @Success 200 {object} map[string]interface{}
// @Router /api/credits/history [get]
func (h *Handler) History(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	usages, err := h.service.History(c.UserContext(), userID, c.QueryInt("limit", maxHistoryLimit))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load credit history")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load credit history",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"history": usages,
	})
}

// AdminAddCredits godoc
// @Summary Add credits to a user (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body AddRequest true "Credits to add"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/admin/users/{id}/credits [post]
func (h *Handler) AdminAddCredits(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var req AddRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Reason == "" {
		req.Reason = "manual top-up"
	}

	balance, err := h.service.Add(c.UserContext(), userID, req.Credits, req.Reason)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{
			"success": true,
			"userId":  userID.String(),
			"credits": balance,
		})
	case errors.Is(err, ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to add credits")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add credits",
		})
	}
}
