package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service provides high-level job queue functionality
type Service struct {
	queue      *Queue
	workerPool *WorkerPool
}

// NewService creates a new job service
func NewService(db *gorm.DB) *Service {
	return &Service{
		queue:      NewQueue(db),
		workerPool: NewWorkerPool(),
	}
}

// Enqueue adds a new job to the queue
func (s *Service) Enqueue(ctx context.Context, userID uuid.UUID, jobType string, payload interface{}, opts ...EnqueueOptions) (*Job, error) {
	options := DefaultEnqueueOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	return s.queue.Enqueue(ctx, userID, jobType, payload, options)
}

// GetUserJob retrieves a job only if it belongs to userID.
func (s *Service) GetUserJob(ctx context.Context, userID, jobID uuid.UUID) (*Job, error) {
	job, err := s.queue.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// CancelUserJob cancels one of userID's jobs that has not started yet.
// The returned job carries its new status.
func (s *Service) CancelUserJob(ctx context.Context, userID, jobID uuid.UUID) (*Job, error) {
	job, err := s.GetUserJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Cancel(ctx, jobID); err != nil {
		return nil, err
	}
	job.Status = StatusCancelled
	return job, nil
}

// ListUserJobs returns userID's most recent jobs on a queue.
func (s *Service) ListUserJobs(ctx context.Context, userID uuid.UUID, queueName string, limit int) ([]Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.queue.ListJobs(ctx, JobFilter{UserID: &userID, Queue: queueName, Limit: limit})
}

// GetStats retrieves job statistics
func (s *Service) GetStats(ctx context.Context, userID *uuid.UUID) (*JobStats, error) {
	return s.queue.GetStats(ctx, userID)
}

// RegisterWorker creates and registers a worker for a queue
func (s *Service) RegisterWorker(config WorkerConfig, handlers ...JobHandler) *Worker {
	worker := NewWorker(s.queue, config)

	for _, handler := range handlers {
		worker.RegisterHandler(handler)
	}

	s.workerPool.AddWorker(worker)
	return worker
}

// StartWorkers starts all registered workers
func (s *Service) StartWorkers(ctx context.Context) error {
	return s.workerPool.Start(ctx)
}

// StopWorkers stops all workers
func (s *Service) StopWorkers() {
	s.workerPool.Stop()
}

// RecoverStalled settles jobs left in processing by a worker that died.
// Each goes through the normal failure path: retried while attempts remain,
// otherwise failed with its handler's OnFinalFailure hook.
func (s *Service) RecoverStalled(ctx context.Context, olderThan time.Duration) (int, error) {
	stalled, err := s.queue.ListStalled(ctx, olderThan, 100)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range stalled {
		job := &stalled[i]
		final, err := s.queue.MarkFailed(ctx, job, ErrJobStalled)
		if err != nil {
			if !errors.Is(err, ErrNotProcessing) {
				log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("Failed to recover stalled job")
			}
			continue
		}
		recovered++

		log.Warn().Str("job_id", job.ID.String()).Str("type", job.Type).Bool("final", final).Msg("Recovered stalled job")
		if final {
			if fh, ok := s.workerPool.FailureHandler(job.Type); ok {
				fh.OnFinalFailure(ctx, job, ErrJobStalled)
			}
		}
	}
	return recovered, nil
}

// Cleanup deletes old finished jobs
func (s *Service) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queue.DeleteOldJobs(ctx, olderThan)
}
