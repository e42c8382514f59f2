package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"taskshare/backend/internal/logsink"
	"taskshare/backend/internal/store"
)

// ReminderScheduler periodically scans for incomplete tasks coming due and
// enqueues one reminder job per task per due window. Deduplication is a
// Redis SETNX marker with a TTL slightly longer than the window, so a task
// is not re-announced every sweep.
type ReminderScheduler struct {
	store    store.TaskStore
	queue    *Queue
	client   *redis.Client
	interval time.Duration
	window   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

type ReminderConfig struct {
	Store       store.TaskStore
	Queue       *Queue
	RedisClient *redis.Client

	// Interval is how often to sweep; Window is how far ahead a due date
	// counts as "coming due".
	Interval time.Duration
	Window   time.Duration
}

func NewReminderScheduler(cfg ReminderConfig) *ReminderScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	return &ReminderScheduler{
		store:    cfg.Store,
		queue:    cfg.Queue,
		client:   cfg.RedisClient,
		interval: cfg.Interval,
		window:   cfg.Window,
		done:     make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					log.Printf("reminder sweep: %v", err)
				}
			}
		}
	}()
}

func (s *ReminderScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// Sweep enqueues reminders for every not-yet-announced task due inside the
// window. Exported so a sweep can be driven directly in tests and admin
// tooling.
func (s *ReminderScheduler) Sweep(ctx context.Context) error {
	now := time.Now().UTC()
	tasks, err := s.store.QueryDueBetween(ctx, now, now.Add(s.window))
	if err != nil {
		return fmt.Errorf("query due tasks: %w", err)
	}

	for i := range tasks {
		task := &tasks[i]
		marker := fmt.Sprintf("taskshare:reminded:%s:%d", task.ID, task.DueDate.Unix())
		set, err := s.client.SetNX(ctx, marker, 1, s.window+time.Hour).Result()
		if err != nil {
			return fmt.Errorf("mark reminder: %w", err)
		}
		if !set {
			continue
		}

		recipients := append([]string{task.OwnerID}, task.Collaborators...)
		if task.AssignedTo != "" && !task.IsCollaborator(task.AssignedTo) && task.AssignedTo != task.OwnerID {
			recipients = append(recipients, task.AssignedTo)
		}
		err = s.queue.Enqueue(ctx, JobTypeDueReminder, map[string]interface{}{
			"task_id":    task.ID,
			"title":      task.Title,
			"due_date":   task.DueDate.Format(time.RFC3339),
			"recipients": recipients,
		})
		if err != nil {
			return fmt.Errorf("enqueue reminder: %w", err)
		}
	}
	return nil
}

// DueReminderHandler turns reminder jobs into collector events. Actual
// notification fan-out (mail, push) lives behind the collector pipeline.
func DueReminderHandler(sink *logsink.Emitter) JobHandler {
	return func(_ context.Context, job *Job) error {
		taskID, _ := job.Payload["task_id"].(string)
		if taskID == "" {
			return fmt.Errorf("reminder job %s missing task_id", job.ID)
		}
		if sink != nil {
			sink.Emit("info", "task_due_reminder", job.Payload)
		}
		return nil
	}
}
