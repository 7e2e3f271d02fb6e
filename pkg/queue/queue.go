package queue

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Processor re-runs the dispatch step for one notification record. The
// delivery service implements it; the queue stays ignorant of record
// semantics beyond the id.
type Processor interface {
	ProcessByID(ctx context.Context, notificationID string) error
}

// Job is an ephemeral retry unit. Jobs are not persisted: anything still
// in the queue at process exit is lost, and only records already marked
// failed can be recovered through the delivery service's retry sweep.
type Job struct {
	NotificationID string
	RetryCount     int
	EnqueuedAt     time.Time
	NextAttemptAt  time.Time
}

// Queue is the in-process delivery retry engine. A single ticker drives
// processing; an atomic busy flag keeps overlapping ticks from running
// concurrently, and a per-tick batch bounded by the concurrency limit is
// dispatched in parallel with per-job failure isolation.
type Queue struct {
	proc Processor

	mu   sync.Mutex
	jobs jobHeap
	busy atomic.Bool

	tickInterval time.Duration
	retryDelay   time.Duration
	maxRetries   int
	concurrency  int
	logger       *slog.Logger

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New creates a delivery queue over the given processor.
func New(proc Processor, opts ...Option) (*Queue, error) {
	if proc == nil {
		return nil, ErrProcessorNil
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	q := &Queue{
		proc:         proc,
		tickInterval: options.tickInterval,
		retryDelay:   options.retryDelay,
		maxRetries:   options.maxRetries,
		concurrency:  options.concurrency,
		logger:       options.logger,
	}
	heap.Init(&q.jobs)
	return q, nil
}

// Enqueue appends a fresh job for the notification, eligible immediately.
func (q *Queue) Enqueue(notificationID string) {
	now := time.Now()
	q.push(&Job{
		NotificationID: notificationID,
		RetryCount:     0,
		EnqueuedAt:     now,
		NextAttemptAt:  now,
	})
}

func (q *Queue) push(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.jobs, job)
}

// Len returns the number of jobs currently queued, including jobs waiting
// out their retry delay.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs.Len()
}

// Start launches the periodic tick loop. It returns an error when the
// queue is already running.
func (q *Queue) Start(ctx context.Context) error {
	q.lifecycleMu.Lock()
	defer q.lifecycleMu.Unlock()

	if q.cancel != nil {
		return fmt.Errorf("delivery queue already started")
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.run(ctx)

	q.logger.Info("delivery queue started",
		slog.Duration("tick_interval", q.tickInterval),
		slog.Int("concurrency", q.concurrency),
		slog.Int("max_retries", q.maxRetries))
	return nil
}

// Stop cancels the tick loop and waits for in-flight jobs to finish.
func (q *Queue) Stop() error {
	q.lifecycleMu.Lock()
	cancel := q.cancel
	q.cancel = nil
	q.lifecycleMu.Unlock()

	if cancel == nil {
		return fmt.Errorf("delivery queue not started")
	}
	cancel()
	q.wg.Wait()

	q.logger.Info("delivery queue stopped")
	return nil
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.ProcessQueue(ctx)
		}
	}
}

// ProcessQueue runs one tick: it dequeues up to the concurrency limit of
// due jobs and dispatches them in parallel. The busy flag makes the tick
// single-flight; a tick arriving while the previous one still runs is
// skipped rather than stacked.
func (q *Queue) ProcessQueue(ctx context.Context) {
	if !q.busy.CompareAndSwap(false, true) {
		return
	}
	defer q.busy.Store(false)

	batch := q.takeDue(time.Now(), q.concurrency)
	if len(batch) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, job := range batch {
		wg.Add(1)
		go func(job *Job) {
			defer wg.Done()
			q.processJob(ctx, job)
		}(job)
	}
	wg.Wait()
}

// takeDue pops up to limit jobs whose next-attempt time has passed.
func (q *Queue) takeDue(now time.Time, limit int) []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var batch []*Job
	for len(batch) < limit && q.jobs.Len() > 0 {
		next := q.jobs[0]
		if next.NextAttemptAt.After(now) {
			break
		}
		batch = append(batch, heap.Pop(&q.jobs).(*Job))
	}
	return batch
}

// processJob dispatches one job. A failure either re-enqueues the job
// after the retry delay or, once the retry budget is spent, logs a
// terminal failure; the record itself is already marked failed by the
// delivery service. Panics are contained so sibling jobs keep running.
func (q *Queue) processJob(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "queue job panicked",
				slog.String("notification_id", job.NotificationID),
				slog.Any("panic", r))
		}
	}()

	err := q.proc.ProcessByID(ctx, job.NotificationID)
	if err == nil {
		return
	}

	if job.RetryCount < q.maxRetries {
		retry := &Job{
			NotificationID: job.NotificationID,
			RetryCount:     job.RetryCount + 1,
			EnqueuedAt:     job.EnqueuedAt,
			NextAttemptAt:  time.Now().Add(q.retryDelay),
		}
		q.push(retry)

		q.logger.WarnContext(ctx, "notification dispatch failed, retry scheduled",
			slog.String("notification_id", job.NotificationID),
			slog.Int("retry_count", retry.RetryCount),
			slog.Duration("retry_delay", q.retryDelay),
			slog.String("error", err.Error()))
		return
	}

	q.logger.ErrorContext(ctx, "notification dispatch failed terminally, retries exhausted",
		slog.String("notification_id", job.NotificationID),
		slog.Int("retry_count", job.RetryCount),
		slog.String("error", err.Error()))
}

// jobHeap orders jobs by next-eligible time so retry delays need no
// per-job timers.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool { return h[i].NextAttemptAt.Before(h[j].NextAttemptAt) }

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*Job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}
