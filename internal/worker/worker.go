// Package worker runs background jobs off Redis lists. The HTTP path only
// ever enqueues; a small pool of goroutines pops, dispatches to registered
// handlers, retries with backoff and parks permanently failing jobs on a
// dead queue for inspection.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

type JobType string

const (
	JobTypeDueReminder JobType = "due_reminder"
	JobTypeAuditExport JobType = "audit_export"
)

const (
	DefaultQueue = "taskshare:jobs"
	RetryQueue   = "taskshare:jobs:retry"
	DeadQueue    = "taskshare:jobs:dead"
)

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

type Config struct {
	RedisClient *redis.Client
	Queues      []string
	PopTimeout  time.Duration
	JobTimeout  time.Duration

	// RetryDelay maps the attempt count to a backoff. Defaults to
	// exponential minutes.
	RetryDelay func(attempts int) time.Duration
}

type Worker struct {
	client     *redis.Client
	handlers   map[JobType]JobHandler
	queues     []string
	popTimeout time.Duration
	jobTimeout time.Duration
	retryDelay func(int) time.Duration

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Worker {
	if len(cfg.Queues) == 0 {
		cfg.Queues = []string{DefaultQueue, RetryQueue}
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.RetryDelay == nil {
		cfg.RetryDelay = func(attempts int) time.Duration {
			return time.Duration(1<<attempts) * time.Minute
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		client:     cfg.RedisClient,
		handlers:   make(map[JobType]JobHandler),
		queues:     cfg.Queues,
		popTimeout: cfg.PopTimeout,
		jobTimeout: cfg.JobTimeout,
		retryDelay: cfg.RetryDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	log.Printf("worker: starting %d goroutines", concurrency)
	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop()
	}
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	log.Println("worker: stopped")
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.processNext(); err != nil {
				log.Printf("worker: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) processNext() error {
	result, err := w.client.BLPop(w.ctx, w.popTimeout, w.queues...).Result()
	if err != nil {
		if err == redis.Nil || w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("pop job: %w", err)
	}
	if len(result) < 2 {
		return fmt.Errorf("malformed pop result")
	}
	queue, raw := result[0], result[1]

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}

	// Not due yet: put it back and let another pass pick it up.
	if time.Now().Before(job.ProcessAt) {
		return w.push(queue, &job)
	}
	return w.execute(&job)
}

func (w *Worker) execute(job *Job) error {
	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler for job type %q", job.Type)
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
	defer cancel()

	if err := handler(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			job.ProcessAt = time.Now().Add(w.retryDelay(job.Attempts))
			log.Printf("worker: job %s attempt %d/%d failed: %v", job.ID, job.Attempts, job.MaxTries, err)
			return w.push(RetryQueue, job)
		}
		log.Printf("worker: job %s dead after %d attempts: %v", job.ID, job.Attempts, err)
		return w.bury(job, err)
	}
	return nil
}

func (w *Worker) push(queue string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return w.client.RPush(w.ctx, queue, raw).Err()
}

func (w *Worker) bury(job *Job, jobErr error) error {
	dead := map[string]interface{}{
		"job":       job,
		"error":     jobErr.Error(),
		"failed_at": time.Now().UTC(),
	}
	raw, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("encode dead job: %w", err)
	}
	return w.client.RPush(w.ctx, DeadQueue, raw).Err()
}

// Queue is the producer side; safe for concurrent use.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload map[string]interface{}) error {
	return q.EnqueueAt(ctx, jobType, payload, time.Now())
}

func (q *Queue) EnqueueAt(ctx context.Context, jobType JobType, payload map[string]interface{}, processAt time.Time) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Payload:   payload,
		MaxTries:  3,
		CreatedAt: time.Now().UTC(),
		ProcessAt: processAt,
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return q.client.RPush(ctx, DefaultQueue, raw).Err()
}

func (q *Queue) Size(ctx context.Context, queue string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return q.client.LLen(ctx, queue).Result()
}
