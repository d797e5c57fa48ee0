package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/metrics"
)

// JobHandler runs queued room transforms on a jobs.Worker.
type JobHandler struct {
	provider imagegen.Provider
	store    ImageStore
	credits  CreditSpender
}

func NewJobHandler(provider imagegen.Provider, store ImageStore, credits CreditSpender) *JobHandler {
	return &JobHandler{provider: provider, store: store, credits: credits}
}

func (h *JobHandler) GetType() string {
	return JobType
}

func (h *JobHandler) Handle(ctx context.Context, job *jobs.Job) (interface{}, error) {
	var payload Payload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Permanent(fmt.Errorf("invalid payload: %w", err))
	}
	if len(payload.Image) == 0 {
		return nil, jobs.Permanent(ErrNoImage)
	}

	prompt := payload.Prompt
	if prompt == "" {
		prompt = imagegen.BuildPrompt(payload.RoomType, payload.FurnitureStyle)
	}

	start := time.Now()
	result, err := h.provider.Generate(ctx, &imagegen.Request{
		Prompt:      prompt,
		Image:       payload.Image,
		ContentType: payload.ContentType,
	})
	metrics.RecordGeneration(h.provider.Name(), err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	contentType := http.DetectContentType(result.Image)
	stored, err := h.store.SaveImage(ctx, result.Image, contentType, resultFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("user_id", job.UserID.String()).
		Str("public_id", stored.PublicID).
		Msg("Transform job stored result")

	return map[string]interface{}{
		"resultUrl":   stored.URL,
		"publicId":    stored.PublicID,
		"contentType": contentType,
		"provider":    h.provider.Name(),
	}, nil
}

// OnFinalFailure gives back the credit charged at submission.
func (h *JobHandler) OnFinalFailure(ctx context.Context, job *jobs.Job, err error) {
	if _, rerr := h.credits.Refund(ctx, job.UserID, CreditCost, "transform job failed: "+err.Error()); rerr != nil {
		log.Error().Err(rerr).Str("job_id", job.ID.String()).Msg("Failed to refund transform job credit")
	}
}
