// Package store is the persistence boundary for task records. The rest of
// the system consumes the TaskStore contract and never sees gorm rows.
package store

import (
	"context"
	"errors"
	"time"

	"taskshare/backend/internal/models"
)

var ErrNotFound = errors.New("task not found")

// TaskStore is the adapter contract consumed by the services layer.
//
// Patch must replace the collaborator set, invite map and assignment
// atomically without clobbering unrelated fields. Relation queries are
// snapshots; no transactional isolation is promised across a read-then-patch
// sequence.
type TaskStore interface {
	Get(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Patch(ctx context.Context, id string, patch models.TaskPatch) error
	Delete(ctx context.Context, id string) error

	QueryOwned(ctx context.Context, userID string) ([]models.Task, error)
	QueryCollaborating(ctx context.Context, userID string) ([]models.Task, error)
	QueryAssigned(ctx context.Context, userID string) ([]models.Task, error)

	// QueryDueBetween feeds the reminder scheduler: incomplete tasks whose
	// due date falls inside [from, to).
	QueryDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error)
}
