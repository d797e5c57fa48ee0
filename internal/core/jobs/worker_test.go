package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryQueue hands out jobs in order and records outcomes.
type memoryQueue struct {
	mu        sync.Mutex
	pending   []*Job
	completed map[uuid.UUID]interface{}
	failed    map[uuid.UUID]error
	markErr   error
}

func newMemoryQueue(jobs ...*Job) *memoryQueue {
	return &memoryQueue{
		pending:   jobs,
		completed: make(map[uuid.UUID]interface{}),
		failed:    make(map[uuid.UUID]error),
	}
}

func (m *memoryQueue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	job := m.pending[0]
	m.pending = m.pending[1:]
	job.Status = StatusProcessing
	job.Attempts++
	return job, nil
}

func (m *memoryQueue) MarkCompleted(ctx context.Context, jobID uuid.UUID, result interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[jobID] = result
	return nil
}

func (m *memoryQueue) MarkFailed(ctx context.Context, job *Job, err error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	final := job.Attempts >= job.MaxRetries || IsPermanent(err)
	if m.markErr != nil {
		return final, m.markErr
	}
	if final {
		job.Status = StatusFailed
		m.failed[job.ID] = err
	} else {
		job.Status = StatusRetrying
		m.pending = append(m.pending, job)
	}
	return final, nil
}

type flakyHandler struct {
	mu        sync.Mutex
	failUntil int
	calls     int
	finalErrs []uuid.UUID
}

func (h *flakyHandler) GetType() string { return "room_transform" }

func (h *flakyHandler) Handle(ctx context.Context, job *Job) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if job.Attempts <= h.failUntil {
		return nil, errors.New("provider down")
	}
	return map[string]string{"url": "/uploads/out.png"}, nil
}

func (h *flakyHandler) OnFinalFailure(ctx context.Context, job *Job, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finalErrs = append(h.finalErrs, job.ID)
}

func TestWorkerRetriesUntilSuccess(t *testing.T) {
	job := &Job{ID: uuid.New(), Type: "room_transform", MaxRetries: 3}
	q := newMemoryQueue(job)
	h := &flakyHandler{failUntil: 1}

	w := NewWorker(q, WorkerConfig{Queue: "transforms", Concurrency: 1, PollInterval: time.Millisecond, Timeout: time.Second})
	w.RegisterHandler(h)
	require.NoError(t, w.processNextJob(context.Background(), 1))
	require.NoError(t, w.processNextJob(context.Background(), 1))
	assert.ErrorIs(t, w.processNextJob(context.Background(), 1), ErrNoJobsAvailable)

	assert.Equal(t, 2, h.calls)
	assert.Contains(t, q.completed, job.ID)
	assert.Empty(t, h.finalErrs)
}

func TestWorkerFinalFailureCompensates(t *testing.T) {
	job := &Job{ID: uuid.New(), Type: "room_transform", MaxRetries: 2}
	q := newMemoryQueue(job)
	h := &flakyHandler{failUntil: 10}

	w := NewWorker(q, WorkerConfig{Concurrency: 1})
	w.RegisterHandler(h)
	for i := 0; i < 2; i++ {
		require.NoError(t, w.processNextJob(context.Background(), 1))
	}

	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, []uuid.UUID{job.ID}, h.finalErrs)
	assert.NotContains(t, q.completed, job.ID)
}

func TestWorkerSkipsCompensationWhenJobAlreadySettled(t *testing.T) {
	job := &Job{ID: uuid.New(), Type: "room_transform", MaxRetries: 1}
	q := newMemoryQueue(job)
	q.markErr = ErrNotProcessing
	h := &flakyHandler{failUntil: 10}

	w := NewWorker(q, WorkerConfig{Concurrency: 1})
	w.RegisterHandler(h)
	require.NoError(t, w.processNextJob(context.Background(), 1))

	assert.Equal(t, 1, h.calls)
	assert.Empty(t, h.finalErrs)
}

func TestWorkerPoolFailureHandler(t *testing.T) {
	pool := NewWorkerPool()
	w := NewWorker(newMemoryQueue(), WorkerConfig{})
	w.RegisterHandler(&flakyHandler{})
	pool.AddWorker(w)

	_, ok := pool.FailureHandler("room_transform")
	assert.True(t, ok)
	_, ok = pool.FailureHandler("mystery")
	assert.False(t, ok)
}

func TestWorkerUnknownTypeFailsPermanently(t *testing.T) {
	job := &Job{ID: uuid.New(), Type: "mystery", MaxRetries: 3}
	q := newMemoryQueue(job)

	w := NewWorker(q, WorkerConfig{})
	require.NoError(t, w.processNextJob(context.Background(), 1))
	assert.Contains(t, q.failed, job.ID)
}

func TestWorkerStartStop(t *testing.T) {
	jobs := []*Job{
		{ID: uuid.New(), Type: "room_transform", MaxRetries: 1},
		{ID: uuid.New(), Type: "room_transform", MaxRetries: 1},
		{ID: uuid.New(), Type: "room_transform", MaxRetries: 1},
	}
	q := newMemoryQueue(jobs...)
	w := NewWorker(q, WorkerConfig{Concurrency: 2, PollInterval: time.Millisecond, Timeout: time.Second})
	w.RegisterHandler(&flakyHandler{})

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.completed) == 3
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	assert.Error(t, w.Start(context.Background()))
}
