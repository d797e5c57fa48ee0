package transform

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/auth"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/credits"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/upload"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Transform godoc
// @Summary Transform a room photo
// @Description Charges one credit, stages the room and returns the generated image.
// @Tags Transform
// @Accept multipart/form-data
// @Produce image/jpeg
// @Produce image/png
// @Security BearerAuth
// @Param image formData file true "Room photo (JPG/PNG, 10MB max)"
// @Param roomType formData string true "Room type"
// @Param furnitureStyle formData string true "Furniture style"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /transform [post]
func (h *Handler) Transform(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	in, err := readInput(c)
	if err != nil {
		return h.writeError(c, userID, err)
	}

	result, err := h.service.Transform(c.UserContext(), userID, in)
	if err != nil {
		return h.writeError(c, userID, err)
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	return c.Send(result.Image)
}

// SubmitJob godoc
// @Summary Queue a room transform
// @Tags Transform
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Room photo (JPG/PNG, 10MB max)"
// @Param roomType formData string true "Room type"
// @Param furnitureStyle formData string true "Furniture style"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/transform/jobs [post]
func (h *Handler) SubmitJob(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	in, err := readInput(c)
	if err != nil {
		return h.writeError(c, userID, err)
	}

	job, err := h.service.Submit(c.UserContext(), userID, in)
	if err != nil {
		return h.writeError(c, userID, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"jobId":   job.ID,
		"status":  job.Status,
	})
}

// GetJob godoc
// @Summary Queued transform status
// @Tags Transform
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} JobView
// @Failure 404 {object} map[string]interface{}
// @Router /api/transform/jobs/{id} [get]
func (h *Handler) GetJob(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	view, err := h.service.GetJob(c.UserContext(), userID, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("Failed to get transform job")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get job"})
	}

	return c.JSON(view)
}

// ListJobs godoc
// @Summary Recent queued transforms
// @Tags Transform
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max jobs" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/transform/jobs [get]
func (h *Handler) ListJobs(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	views, err := h.service.ListJobs(c.UserContext(), userID, c.QueryInt("limit", 20))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list transform jobs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list jobs"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"jobs":    views,
	})
}

// CancelJob godoc
// @Summary Cancel a queued transform
// @Description Cancels a transform no worker has started and refunds its credit.
// @Tags Transform
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/transform/jobs/{id} [delete]
func (h *Handler) CancelJob(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	view, err := h.service.CancelJob(c.UserContext(), userID, jobID)
	switch {
	case err == nil:
	case errors.Is(err, jobs.ErrJobNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, jobs.ErrNotCancellable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Job already started"})
	default:
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("Failed to cancel transform job")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel job"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"jobId":   view.JobID,
		"status":  view.Status,
	})
}

func (h *Handler) writeError(c *fiber.Ctx, userID uuid.UUID, err error) error {
	var genErr *GenerationError
	switch {
	case errors.Is(err, ErrNoImage),
		errors.Is(err, ErrMissingOptions),
		errors.Is(err, upload.ErrTypeNotAllowed),
		errors.Is(err, upload.ErrFileTooLarge),
		errors.Is(err, credits.ErrInsufficientCredits):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, credits.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &genErr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Transform failed",
			"details": genErr.Err.Error(),
		})
	default:
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Transform request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Transform failed"})
	}
}

func readInput(c *fiber.Ctx) (*Input, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, ErrNoImage
	}

	in := &Input{
		RoomType:       c.FormValue("roomType"),
		FurnitureStyle: c.FormValue("furnitureStyle"),
		ContentType:    fh.Header.Get(fiber.HeaderContentType),
	}
	if in.RoomType == "" || in.FurnitureStyle == "" {
		return nil, ErrMissingOptions
	}
	if fh.Size > upload.DefaultUploadOptions().MaxSize {
		return nil, upload.ErrFileTooLarge
	}

	in.Image, err = readFile(fh)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
