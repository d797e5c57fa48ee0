package transform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/credits"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/upload"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/metrics"
)

// CreditCost is charged per transformation.
const CreditCost = 1

const (
	JobType      = "room_transform"
	Queue        = "transforms"
	resultFolder = "transforms"
)

var (
	ErrNoImage        = errors.New("No image uploaded")
	ErrMissingOptions = errors.New("Room type and style required")
)

// GenerationError is returned when the provider failed after credits were
// taken. The credit has been refunded by the time the caller sees it.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "Transform failed: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// CreditSpender is the part of the credit ledger transforms need.
type CreditSpender interface {
	Deduct(ctx context.Context, userID uuid.UUID, amount int, operation string, metadata map[string]interface{}) (int, error)
	Refund(ctx context.Context, userID uuid.UUID, amount int, reason string) (int, error)
}

// JobQueue is the part of the job service transforms need.
type JobQueue interface {
	Enqueue(ctx context.Context, userID uuid.UUID, jobType string, payload interface{}, opts ...jobs.EnqueueOptions) (*jobs.Job, error)
	GetUserJob(ctx context.Context, userID, jobID uuid.UUID) (*jobs.Job, error)
	CancelUserJob(ctx context.Context, userID, jobID uuid.UUID) (*jobs.Job, error)
	ListUserJobs(ctx context.Context, userID uuid.UUID, queueName string, limit int) ([]jobs.Job, error)
}

// ImageStore validates uploads and persists generated images.
type ImageStore interface {
	ValidateImage(data []byte, contentType string) error
	SaveImage(ctx context.Context, data []byte, contentType, folder string) (*upload.UploadResult, error)
}

// Input is one room photo with the requested staging.
type Input struct {
	RoomType       string
	FurnitureStyle string
	Image          []byte
	ContentType    string
}

// Payload is stored on queued jobs.
type Payload struct {
	RoomType       string `json:"roomType"`
	FurnitureStyle string `json:"furnitureStyle"`
	Prompt         string `json:"prompt"`
	ContentType    string `json:"contentType"`
	Image          []byte `json:"image"`
}

// JobView is what clients see when polling a queued transform.
type JobView struct {
	JobID       uuid.UUID      `json:"jobId"`
	Status      jobs.JobStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	ResultURL   string         `json:"resultUrl,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type Service struct {
	provider imagegen.Provider
	credits  CreditSpender
	queue    JobQueue
	store    ImageStore
}

func NewService(provider imagegen.Provider, credits CreditSpender, queue JobQueue, store ImageStore) *Service {
	return &Service{
		provider: provider,
		credits:  credits,
		queue:    queue,
		store:    store,
	}
}

// ProviderName reports the active image backend.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Validate checks an input before any credit is spent.
func (s *Service) Validate(in *Input) error {
	if in == nil || len(in.Image) == 0 {
		return ErrNoImage
	}
	if in.RoomType == "" || in.FurnitureStyle == "" {
		return ErrMissingOptions
	}
	return s.store.ValidateImage(in.Image, in.ContentType)
}

// Transform charges one credit and generates the staged image inline.
func (s *Service) Transform(ctx context.Context, userID uuid.UUID, in *Input) (*imagegen.Result, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	prompt := imagegen.BuildPrompt(in.RoomType, in.FurnitureStyle)
	if err := s.charge(ctx, userID, in); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.provider.Generate(ctx, &imagegen.Request{
		Prompt:      prompt,
		Image:       in.Image,
		ContentType: in.ContentType,
	})
	metrics.RecordGeneration(s.provider.Name(), err == nil, time.Since(start))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Str("provider", s.provider.Name()).Msg("Transform failed")
		s.refund(context.WithoutCancel(ctx), userID, err)
		return nil, &GenerationError{Err: err}
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("room_type", in.RoomType).
		Str("style", in.FurnitureStyle).
		Dur("duration", time.Since(start)).
		Msg("Transform completed")
	return result, nil
}

// Submit charges one credit and queues the transform for a worker.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, in *Input) (*jobs.Job, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	if err := s.charge(ctx, userID, in); err != nil {
		return nil, err
	}

	payload := Payload{
		RoomType:       in.RoomType,
		FurnitureStyle: in.FurnitureStyle,
		Prompt:         imagegen.BuildPrompt(in.RoomType, in.FurnitureStyle),
		ContentType:    in.ContentType,
		Image:          in.Image,
	}
	opts := jobs.DefaultEnqueueOptions()
	opts.Queue = Queue
	opts.MaxRetries = 2

	job, err := s.queue.Enqueue(ctx, userID, JobType, payload, opts)
	if err != nil {
		s.refund(context.WithoutCancel(ctx), userID, err)
		return nil, fmt.Errorf("failed to enqueue transform: %w", err)
	}

	log.Info().Str("user_id", userID.String()).Str("job_id", job.ID.String()).Msg("Transform queued")
	return job, nil
}

// GetJob returns the status of one of the user's queued transforms.
func (s *Service) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*JobView, error) {
	job, err := s.queue.GetUserJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	return newJobView(job), nil
}

// ListJobs returns the user's recent queued transforms, newest first.
func (s *Service) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*JobView, error) {
	list, err := s.queue.ListUserJobs(ctx, userID, Queue, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*JobView, 0, len(list))
	for i := range list {
		views = append(views, newJobView(&list[i]))
	}
	return views, nil
}

// CancelJob cancels a queued transform that no worker has picked up and
// gives the credit back.
func (s *Service) CancelJob(ctx context.Context, userID, jobID uuid.UUID) (*JobView, error) {
	job, err := s.queue.CancelUserJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	s.refund(context.WithoutCancel(ctx), userID, errors.New("transform cancelled"))

	log.Info().Str("user_id", userID.String()).Str("job_id", jobID.String()).Msg("Transform cancelled")
	return newJobView(job), nil
}

func newJobView(job *jobs.Job) *JobView {
	view := &JobView{
		JobID:       job.ID,
		Status:      job.Status,
		Attempts:    job.Attempts,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == jobs.StatusCompleted {
		view.ResultURL = gjson.GetBytes(job.Result, "resultUrl").String()
	}
	if job.Status == jobs.StatusFailed || job.Status == jobs.StatusRetrying {
		view.Error = job.Error
	}
	return view
}

func (s *Service) charge(ctx context.Context, userID uuid.UUID, in *Input) error {
	_, err := s.credits.Deduct(ctx, userID, CreditCost, credits.OperationImageGeneration, map[string]interface{}{
		"roomType":       in.RoomType,
		"furnitureStyle": in.FurnitureStyle,
		"provider":       s.provider.Name(),
	})
	return err
}

func (s *Service) refund(ctx context.Context, userID uuid.UUID, cause error) {
	if _, err := s.credits.Refund(ctx, userID, CreditCost, cause.Error()); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to refund transform credit")
	}
}
