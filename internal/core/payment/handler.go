package payment

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreatePaymentRequest selects a credit package.
type CreatePaymentRequest struct {
	ProductID string `json:"productId"`
}

// ListProducts godoc
// @Summary List credit packages
// @Tags Payments
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/products [get]
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":  true,
		"products": Products(),
	})
}

// CreatePayment godoc
// @Summary Create a payment
// @Description Creates a pending order and returns the signed WayForPay purchase form.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePaymentRequest true "Product"
// @Success 200 {object} CheckoutForm
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/create-payment [post]
func (h *Handler) CreatePayment(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	form, err := h.service.CreatePayment(c.UserContext(), userID, req.ProductID, c.Hostname(), c.BaseURL())
	switch {
	case err == nil:
		return c.JSON(form)
	case errors.Is(err, ErrInvalidProduct):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotConfigured):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Payment creation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create payment",
		})
	}
}

// PaymentCallback godoc
// @Summary WayForPay service callback
// @Description Receives transaction status updates. Approved orders are credited once.
// @Tags Payments
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} Ack
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/payment-callback [post]
func (h *Handler) PaymentCallback(c *fiber.Ctx) error {
	result, err := h.service.HandleCallback(c.UserContext(), c.Body())
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyCallback),
		errors.Is(err, ErrMalformedCallback),
		errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrInvalidSignature):
		log.Warn().Err(err).Msg("Rejected payment callback")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrProcessingFailed):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrProcessingFailed.Error()})
	default:
		log.Error().Err(err).Msg("Payment callback failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Callback processing failed"})
	}

	if result.Ack != nil {
		return c.JSON(result.Ack)
	}
	return c.Status(fiber.StatusOK).SendString("Callback received")
}

// ListPayments godoc
// @Summary Payment history
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/payments [get]
func (h *Handler) ListPayments(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	txns, err := h.service.ListPayments(c.UserContext(), userID, c.QueryInt("limit", 50))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list payments")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list payments"})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"payments": txns,
	})
}

// GetPayment godoc
// @Summary Payment status
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param orderReference path string true "Order reference"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/payments/{orderReference} [get]
func (h *Handler) GetPayment(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	txn, err := h.service.GetPayment(c.UserContext(), userID, c.Params("orderReference"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Msg("Failed to get payment")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get payment"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": txn,
	})
}

// GetReceipt godoc
// @Summary Download a payment receipt
// @Description Renders a completed order as a PDF receipt.
// @Tags Payments
// @Produce application/pdf
// @Security BearerAuth
// @Param orderReference path string true "Order reference"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/payments/{orderReference}/receipt [get]
func (h *Handler) GetReceipt(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	file, err := h.service.Receipt(c.UserContext(), userID, c.Params("orderReference"))
	switch {
	case err == nil:
	case errors.Is(err, ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrReceiptUnavailable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("Failed to render receipt")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to render receipt"})
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	return c.Send(file.Content)
}
