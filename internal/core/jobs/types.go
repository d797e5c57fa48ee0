package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusRetrying   JobStatus = "retrying"
	StatusCancelled  JobStatus = "cancelled"
)

// JobPriority represents the priority of a job
type JobPriority int

const (
	PriorityLow      JobPriority = 0
	PriorityNormal   JobPriority = 5
	PriorityHigh     JobPriority = 10
	PriorityCritical JobPriority = 20
)

var (
	ErrJobNotFound     = errors.New("Job not found")
	ErrNotCancellable  = errors.New("Job not found or not in cancellable state")
	ErrNoJobsAvailable = errors.New("no jobs available")
	ErrNotProcessing   = errors.New("job is no longer processing")
	ErrJobStalled      = errors.New("worker stopped before the job finished")
)

// Job represents a background job in the database
type Job struct {
	ID      uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	Queue   string         `gorm:"type:varchar(100);not null;index" json:"queue"`
	Type    string         `gorm:"type:varchar(100);not null" json:"type"`
	Payload datatypes.JSON `gorm:"type:jsonb" json:"-"`

	Status   JobStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority JobPriority `gorm:"type:int;not null;default:5;index" json:"priority"`

	Attempts   int `gorm:"not null;default:0" json:"attempts"`
	MaxRetries int `gorm:"not null;default:3" json:"maxRetries"`

	ScheduledAt *time.Time `gorm:"index" json:"scheduledAt,omitempty"` // For delayed jobs and retry backoff
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty"`

	Error    string         `gorm:"type:text" json:"error,omitempty"`
	Result   datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`
	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Job model
func (Job) TableName() string {
	return "transform_jobs"
}

// Terminal reports whether the job will not run again.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed || j.Status == StatusCancelled
}

// JobHandler is the interface that job handlers must implement.
// The returned result is stored as JSON on the job.
type JobHandler interface {
	Handle(ctx context.Context, job *Job) (interface{}, error)
	GetType() string
}

// FailureHandler is implemented by handlers that need to compensate once a
// job has exhausted its retries.
type FailureHandler interface {
	OnFinalFailure(ctx context.Context, job *Job, err error)
}

// EnqueueOptions contains options for enqueueing a job
type EnqueueOptions struct {
	Queue      string
	Priority   JobPriority
	MaxRetries int
	ScheduleAt *time.Time
	Metadata   map[string]interface{}
}

// DefaultEnqueueOptions returns default enqueue options
func DefaultEnqueueOptions() EnqueueOptions {
	return EnqueueOptions{
		Queue:      "default",
		Priority:   PriorityNormal,
		MaxRetries: 3,
	}
}

// JobFilter contains options for filtering jobs
type JobFilter struct {
	UserID   *uuid.UUID
	Queue    string
	Type     string
	Status   JobStatus
	Priority *JobPriority
	Limit    int
}

// JobStats represents statistics about jobs
type JobStats struct {
	TotalJobs       int64            `json:"total_jobs"`
	PendingJobs     int64            `json:"pending_jobs"`
	ProcessingJobs  int64            `json:"processing_jobs"`
	CompletedJobs   int64            `json:"completed_jobs"`
	FailedJobs      int64            `json:"failed_jobs"`
	JobsByType      map[string]int64 `json:"jobs_by_type"`
	AverageWaitTime float64          `json:"average_wait_time_seconds"`
}

// WorkerConfig contains configuration for job workers
type WorkerConfig struct {
	Queue        string
	Concurrency  int           // Number of concurrent workers
	PollInterval time.Duration // How often to poll for new jobs
	Timeout      time.Duration // Maximum time for job execution
}

// DefaultWorkerConfig returns default worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Queue:        "default",
		Concurrency:  2,
		PollInterval: 1 * time.Second,
		Timeout:      3 * time.Minute,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
