package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobQueue is what a Worker needs from the queue.
type JobQueue interface {
	Dequeue(ctx context.Context, queueName string) (*Job, error)
	MarkCompleted(ctx context.Context, jobID uuid.UUID, result interface{}) error
	// MarkFailed schedules a retry or fails the job for good; final reports
	// which one happened.
	MarkFailed(ctx context.Context, job *Job, err error) (final bool, markErr error)
}

// Queue manages job queue operations
type Queue struct {
	db  *gorm.DB
	now func() time.Time
}

// NewQueue creates a new job queue
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

// Enqueue adds a new job to the queue
func (q *Queue) Enqueue(ctx context.Context, userID uuid.UUID, jobType string, payload interface{}, opts EnqueueOptions) (*Job, error) {
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	var metadataJSON datatypes.JSON
	if opts.Metadata != nil {
		metadataBytes, err := json.Marshal(opts.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize metadata: %w", err)
		}
		metadataJSON = metadataBytes
	}

	job := &Job{
		UserID:      userID,
		Queue:       opts.Queue,
		Type:        jobType,
		Payload:     payloadJSON,
		Status:      StatusPending,
		Priority:    opts.Priority,
		MaxRetries:  opts.MaxRetries,
		ScheduledAt: opts.ScheduleAt,
		Metadata:    metadataJSON,
	}

	if err := q.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// Dequeue claims the next runnable job: pending or retrying, past its
// scheduled time, highest priority first then oldest. Rows locked by other
// workers are skipped. Returns nil when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	var job Job
	now := q.now()

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ? AND status IN ?", queueName, []JobStatus{StatusPending, StatusRetrying}).
			Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
			Order("priority DESC, created_at ASC").
			First(&job).Error
		if err != nil {
			return err
		}

		job.Status = StatusProcessing
		job.StartedAt = &now
		job.Attempts++

		return tx.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":     job.Status,
			"started_at": now,
			"attempts":   job.Attempts,
		}).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	return &job, nil
}

// MarkCompleted marks a job as completed
func (q *Queue) MarkCompleted(ctx context.Context, jobID uuid.UUID, result interface{}) error {
	updates := map[string]interface{}{
		"status":       StatusCompleted,
		"completed_at": q.now(),
		"error":        "",
	}

	if result != nil {
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to serialize result: %w", err)
		}
		updates["result"] = datatypes.JSON(resultJSON)
	}

	return q.db.WithContext(ctx).Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error
}

// MarkFailed records the error and either schedules a retry with
// exponential backoff or fails the job. Only jobs still in processing are
// touched; ErrNotProcessing means someone else already settled it.
func (q *Queue) MarkFailed(ctx context.Context, job *Job, jobErr error) (bool, error) {
	now := q.now()
	updates := map[string]interface{}{
		"error":     jobErr.Error(),
		"failed_at": now,
	}

	final := job.Attempts >= job.MaxRetries || IsPermanent(jobErr)
	if final {
		job.Status = StatusFailed
	} else {
		scheduleAt := now.Add(time.Duration(calculateBackoff(job.Attempts)) * time.Second)
		job.Status = StatusRetrying
		job.ScheduledAt = &scheduleAt
		updates["scheduled_at"] = scheduleAt
	}
	updates["status"] = job.Status
	job.Error = jobErr.Error()
	job.FailedAt = &now

	result := q.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", job.ID, StatusProcessing).
		Updates(updates)
	if result.Error != nil {
		return final, fmt.Errorf("failed to mark job failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return final, ErrNotProcessing
	}
	return final, nil
}

// Cancel cancels a pending job
func (q *Queue) Cancel(ctx context.Context, jobID uuid.UUID) error {
	result := q.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", jobID, []JobStatus{StatusPending, StatusRetrying}).
		Update("status", StatusCancelled)

	if result.Error != nil {
		return fmt.Errorf("failed to cancel job: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotCancellable
	}

	return nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	var job Job
	if err := q.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListJobs lists jobs with optional filters
func (q *Queue) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	query := q.db.WithContext(ctx).Model(&Job{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Queue != "" {
		query = query.Where("queue = ?", filter.Queue)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	query = query.Order("created_at DESC")

	var jobs []Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// GetStats retrieves statistics about jobs
func (q *Queue) GetStats(ctx context.Context, userID *uuid.UUID) (*JobStats, error) {
	stats := &JobStats{
		JobsByType: make(map[string]int64),
	}

	base := func() *gorm.DB {
		query := q.db.WithContext(ctx).Model(&Job{})
		if userID != nil {
			query = query.Where("user_id = ?", *userID)
		}
		return query
	}

	var byStatus []struct {
		Status JobStatus
		Count  int64
	}
	if err := base().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	for _, s := range byStatus {
		stats.TotalJobs += s.Count
		switch s.Status {
		case StatusPending, StatusRetrying:
			stats.PendingJobs += s.Count
		case StatusProcessing:
			stats.ProcessingJobs += s.Count
		case StatusCompleted:
			stats.CompletedJobs += s.Count
		case StatusFailed:
			stats.FailedJobs += s.Count
		}
	}

	var byType []struct {
		Type  string
		Count int64
	}
	if err := base().Select("type, COUNT(*) AS count").Group("type").Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("failed to count jobs by type: %w", err)
	}
	for _, ts := range byType {
		stats.JobsByType[ts.Type] = ts.Count
	}

	// Average wait time (time from creation to start)
	var avgWait sql.NullFloat64
	if err := base().
		Select("AVG(EXTRACT(EPOCH FROM (started_at - created_at)))").
		Where("started_at IS NOT NULL").
		Row().Scan(&avgWait); err != nil {
		return nil, fmt.Errorf("failed to compute wait time: %w", err)
	}
	stats.AverageWaitTime = avgWait.Float64

	return stats, nil
}

// ListStalled returns jobs stuck in processing since before cutoff. Their
// worker died without settling them.
func (q *Queue) ListStalled(ctx context.Context, olderThan time.Duration, limit int) ([]Job, error) {
	cutoff := q.now().Add(-olderThan)

	var jobs []Job
	err := q.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", StatusProcessing, cutoff).
		Order("started_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stalled jobs: %w", err)
	}
	return jobs, nil
}

// DeleteOldJobs deletes finished jobs last touched before now-olderThan
func (q *Queue) DeleteOldJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := q.now().Add(-olderThan)

	result := q.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []JobStatus{StatusCompleted, StatusFailed, StatusCancelled}, cutoff).
		Delete(&Job{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// calculateBackoff calculates exponential backoff time in seconds
func calculateBackoff(attempt int) int {
	// Exponential backoff: 2^attempt seconds, max 1 hour
	if attempt > 12 {
		return 3600
	}
	backoff := 1 << attempt
	if backoff > 3600 {
		backoff = 3600
	}
	return backoff
}
