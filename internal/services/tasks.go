// Package services implements the application rules of task sharing:
// permission checks, the multi-relation list query, collaborator management
// and profile enrichment. Handlers stay thin; everything consequential
// happens here against the TaskStore and Directory contracts.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"taskshare/backend/internal/authz"
	"taskshare/backend/internal/identity"
	"taskshare/backend/internal/logsink"
	"taskshare/backend/internal/models"
	"taskshare/backend/internal/store"
)

// ListFilter narrows the relations included in a task listing.
type ListFilter int

const (
	// FilterAll unions owned, collaborating and assigned tasks.
	FilterAll ListFilter = iota
	FilterOwned
	FilterCollaborating
	FilterAssigned
)

// ListOptions shape a call to List. Search matches case-insensitively
// against title and description.
type ListOptions struct {
	Filter ListFilter
	Search string
}

// CreateTaskInput carries the caller-settable fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// UpdateTaskInput is a partial update; nil fields are left untouched.
// ClearDue removes an existing due date.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool
	Completed   *bool
}

// TaskService covers the task lifecycle for an authenticated user.
type TaskService interface {
	Create(ctx context.Context, userID string, in CreateTaskInput) (*models.EnrichedTask, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]*models.EnrichedTask, error)
	Get(ctx context.Context, userID, taskID string) (*models.EnrichedTask, error)
	Update(ctx context.Context, userID, taskID string, in UpdateTaskInput) (*models.EnrichedTask, error)
	Delete(ctx context.Context, userID, taskID string) error
	Toggle(ctx context.Context, userID, taskID string) (*models.EnrichedTask, error)
}

type TaskServiceImpl struct {
	store store.TaskStore
	dir   identity.Directory
	sink  *logsink.Emitter
}

func NewTaskService(s store.TaskStore, dir identity.Directory, sink *logsink.Emitter) *TaskServiceImpl {
	return &TaskServiceImpl{store: s, dir: dir, sink: sink}
}

func (s *TaskServiceImpl) emit(level, action string, fields map[string]interface{}) {
	if s.sink != nil {
		s.sink.Emit(level, action, fields)
	}
}

// loadAuthorized fetches the task and checks op for the acting user. A task
// the user cannot see at all is reported the same as a missing one only for
// reads; for mutations a visible-but-denied task yields ErrForbidden.
func (s *TaskServiceImpl) loadAuthorized(ctx context.Context, userID, taskID string, op authz.Operation) (*models.Task, error) {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !authz.Decide(task, userID, op) {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *TaskServiceImpl) Create(ctx context.Context, userID string, in CreateTaskInput) (*models.EnrichedTask, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrInvalidInput
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:            id.String(),
		Title:         in.Title,
		Description:   in.Description,
		DueDate:       in.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
		OwnerID:       userID,
		Collaborators: []string{},
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}

	s.emit("info", "task_created", map[string]interface{}{"task_id": task.ID, "user_id": userID})
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}

// List runs one query per relation the filter selects, deduplicates tasks
// reachable through more than one relation, applies the search filter, and
// sorts newest first. Tasks without a creation timestamp sort last.
func (s *TaskServiceImpl) List(ctx context.Context, userID string, opts ListOptions) ([]*models.EnrichedTask, error) {
	type queryFn func(context.Context, string) ([]models.Task, error)

	var queries []queryFn
	switch opts.Filter {
	case FilterOwned:
		queries = []queryFn{s.store.QueryOwned}
	case FilterCollaborating:
		queries = []queryFn{s.store.QueryCollaborating}
	case FilterAssigned:
		queries = []queryFn{s.store.QueryAssigned}
	default:
		queries = []queryFn{s.store.QueryOwned, s.store.QueryCollaborating, s.store.QueryAssigned}
	}

	seen := make(map[string]struct{})
	var tasks []models.Task
	for _, q := range queries {
		batch, err := q(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, t := range batch {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			tasks = append(tasks, t)
		}
	}

	if needle := strings.ToLower(strings.TrimSpace(opts.Search)); needle != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if strings.Contains(strings.ToLower(t.Title), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].CreatedAt, tasks[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})

	enr := newEnricher(s.dir)
	out := make([]*models.EnrichedTask, 0, len(tasks))
	for i := range tasks {
		out = append(out, enr.enrichTask(ctx, &tasks[i], userID))
	}
	return out, nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, userID, taskID string) (*models.EnrichedTask, error) {
	task, err := s.loadAuthorized(ctx, userID, taskID, authz.OpRead)
	if err != nil {
		return nil, err
	}
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}

func (s *TaskServiceImpl) Update(ctx context.Context, userID, taskID string, in UpdateTaskInput) (*models.EnrichedTask, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.loadAuthorized(ctx, userID, taskID, authz.OpUpdate); err != nil {
		return nil, err
	}

	patch := models.TaskPatch{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		ClearDue:    in.ClearDue,
		Completed:   in.Completed,
	}
	if !patch.Empty() {
		if err := s.store.Patch(ctx, taskID, patch); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrTaskNotFound
			}
			return nil, err
		}
	}

	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.emit("info", "task_updated", map[string]interface{}{"task_id": taskID, "user_id": userID})
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}

func (s *TaskServiceImpl) Delete(ctx context.Context, userID, taskID string) error {
	if _, err := s.loadAuthorized(ctx, userID, taskID, authz.OpDelete); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	s.emit("info", "task_deleted", map[string]interface{}{"task_id": taskID, "user_id": userID})
	return nil
}

func (s *TaskServiceImpl) Toggle(ctx context.Context, userID, taskID string) (*models.EnrichedTask, error) {
	task, err := s.loadAuthorized(ctx, userID, taskID, authz.OpToggle)
	if err != nil {
		return nil, err
	}

	next := !task.Completed
	if err := s.store.Patch(ctx, taskID, models.TaskPatch{Completed: &next}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task, err = s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.emit("info", "task_toggled", map[string]interface{}{
		"task_id": taskID, "user_id": userID, "completed": task.Completed,
	})
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}
