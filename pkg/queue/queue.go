// Package queue runs background jobs on named lanes. Each lane has its own
// worker budget so latency-sensitive work (chat turns) is never starved by
// bulk work (transcript chunking, insight extraction).
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/pkg/utils"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Runner is the work a job performs. The context is canceled when the job
// is canceled or the queue shuts down.
type Runner func(ctx context.Context) error

// RetryPolicy controls re-execution after failures. Only errors for which
// Retryable returns true are retried; attempts are bounded and spaced by
// exponential backoff starting at Backoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// Job is the observable record of one unit of background work.
type Job struct {
	ID        string     `json:"id"`
	Lane      string     `json:"lane"`
	Title     string     `json:"title"`
	Status    JobStatus  `json:"status"`
	Attempts  int        `json:"attempts"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type jobRuntime struct {
	job    *Job
	runner Runner
	policy RetryPolicy
	ctx    context.Context
	cancel context.CancelFunc
}

type lane struct {
	name       string
	maxWorkers int
	queue      []*jobRuntime
	running    map[string]*jobRuntime
}

// Queue is the in-process job manager.
type Queue struct {
	mu      sync.Mutex
	lanes   map[string]*lane
	history []*Job
	logger  *slog.Logger
}

func New() *Queue {
	return &Queue{
		lanes:  make(map[string]*lane),
		logger: utils.GetLogger(),
	}
}

// AddLane registers a lane with its worker budget. Enqueueing to an
// unregistered lane creates it with one worker.
func (q *Queue) AddLane(name string, workers int) {
	if workers <= 0 {
		workers = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lanes[name] = &lane{name: name, maxWorkers: workers, running: make(map[string]*jobRuntime)}
}

// Enqueue schedules a job with no retries.
func (q *Queue) Enqueue(laneName, title string, runner Runner) *Job {
	return q.EnqueueWithRetry(laneName, title, RetryPolicy{MaxAttempts: 1}, runner)
}

// EnqueueWithRetry schedules a job governed by the given retry policy.
func (q *Queue) EnqueueWithRetry(laneName, title string, policy RetryPolicy, runner Runner) *Job {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.Backoff <= 0 {
		policy.Backoff = time.Second
	}

	q.mu.Lock()
	ln, ok := q.lanes[laneName]
	if !ok {
		ln = &lane{name: laneName, maxWorkers: 1, running: make(map[string]*jobRuntime)}
		q.lanes[laneName] = ln
	}

	job := &Job{
		ID:        uuid.NewString(),
		Lane:      laneName,
		Title:     title,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	ln.queue = append(ln.queue, &jobRuntime{job: job, runner: runner, policy: policy, ctx: ctx, cancel: cancel})
	q.mu.Unlock()

	go q.maybeStartWorkers(ln)
	return job
}

func (q *Queue) maybeStartWorkers(ln *lane) {
	for {
		q.mu.Lock()
		if len(ln.running) >= ln.maxWorkers || len(ln.queue) == 0 {
			q.mu.Unlock()
			return
		}

		rt := ln.queue[0]
		ln.queue = ln.queue[1:]

		now := time.Now()
		rt.job.Status = JobStatusRunning
		rt.job.StartedAt = &now
		ln.running[rt.job.ID] = rt
		q.mu.Unlock()

		err := q.runWithRetry(rt)

		q.mu.Lock()
		delete(ln.running, rt.job.ID)

		end := time.Now()
		rt.job.EndedAt = &end

		switch {
		case errors.Is(err, context.Canceled):
			rt.job.Status = JobStatusCanceled
			if rt.job.Error == "" {
				rt.job.Error = "canceled"
			}
		case err != nil:
			rt.job.Status = JobStatusFailed
			rt.job.Error = err.Error()
			q.logger.Error("job failed", "lane", rt.job.Lane, "title", rt.job.Title,
				"attempts", rt.job.Attempts, "error", err)
		default:
			rt.job.Status = JobStatusSucceeded
		}

		q.history = append([]*Job{rt.job}, q.history...)
		if len(q.history) > 200 {
			q.history = q.history[:200]
		}
		q.mu.Unlock()
	}
}

// runWithRetry executes the job, retrying retryable failures with
// exponential backoff up to the attempt cap.
func (q *Queue) runWithRetry(rt *jobRuntime) error {
	var err error
	backoff := rt.policy.Backoff

	for attempt := 1; attempt <= rt.policy.MaxAttempts; attempt++ {
		q.mu.Lock()
		rt.job.Attempts = attempt
		q.mu.Unlock()

		err = rt.runner(rt.ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if rt.policy.Retryable == nil || !rt.policy.Retryable(err) {
			return err
		}
		if attempt == rt.policy.MaxAttempts {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		q.logger.Warn("job attempt failed, retrying", "lane", rt.job.Lane,
			"title", rt.job.Title, "attempt", attempt, "backoff", backoff, "error", err)

		select {
		case <-rt.ctx.Done():
			return rt.ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// Cancel stops a queued or running job.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, ln := range q.lanes {
		if rt, ok := ln.running[id]; ok {
			rt.cancel()
			return nil
		}
		for i, rt := range ln.queue {
			if rt.job.ID == id {
				ln.queue = append(ln.queue[:i], ln.queue[i+1:]...)
				rt.cancel()
				rt.job.Status = JobStatusCanceled
				rt.job.Error = "canceled"
				q.history = append([]*Job{rt.job}, q.history...)
				return nil
			}
		}
	}
	return fmt.Errorf("job %s not found", id)
}

// ListRunning returns all currently running jobs across lanes.
func (q *Queue) ListRunning() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Job
	for _, ln := range q.lanes {
		for _, rt := range ln.running {
			out = append(out, *rt.job)
		}
	}
	return out
}

// ListHistory returns the most recent finished jobs, newest first.
func (q *Queue) ListHistory(limit int) []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit <= 0 || limit > len(q.history) {
		limit = len(q.history)
	}
	out := make([]Job, 0, limit)
	for _, j := range q.history[:limit] {
		out = append(out, *j)
	}
	return out
}
