package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskshare/backend/internal/models"

	"gorm.io/gorm"
)

type taskRow struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	DueDate     *time.Time `gorm:"index"`
	Completed   bool       `gorm:"not null;default:false"`
	OwnerID     string     `gorm:"not null;index"`
	AssignedTo  string     `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRow) TableName() string { return "tasks" }

// collaboratorRow preserves insertion order through Position so invite
// provenance stays attributable.
type collaboratorRow struct {
	TaskID   string `gorm:"primaryKey"`
	UserID   string `gorm:"primaryKey;index"`
	Position int    `gorm:"not null"`
}

func (collaboratorRow) TableName() string { return "task_collaborators" }

type inviteRow struct {
	TaskID         string `gorm:"primaryKey"`
	UserID         string `gorm:"primaryKey"`
	InvitedByID    string `gorm:"not null"`
	InvitedByEmail string
	InvitedByName  string
	InvitedAt      time.Time
}

func (inviteRow) TableName() string { return "collaborator_invites" }

// GormTaskStore persists tasks relationally: the collaborator set and invite
// map live in side tables keyed by task id, replaced transactionally on
// every patch that touches them.
type GormTaskStore struct {
	db *gorm.DB
}

func NewGormTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

// AutoMigrate creates the task tables. Called once at process start.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&taskRow{}, &collaboratorRow{}, &inviteRow{})
}

func (s *GormTaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	var row taskRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	tasks, err := s.attachRelations(ctx, []taskRow{row})
	if err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (s *GormTaskStore) Create(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	row := taskRow{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Completed:   task.Completed,
		OwnerID:     task.OwnerID,
		AssignedTo:  task.AssignedTo,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.CreatedAt,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return replaceRelations(tx, task.ID, task.Collaborators, task.Invites)
	})
}

func (s *GormTaskStore) Patch(ctx context.Context, id string, patch models.TaskPatch) error {
	if patch.Empty() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row taskRow
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("patch task: %w", err)
		}

		updates := map[string]interface{}{}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.DueDate != nil {
			updates["due_date"] = *patch.DueDate
		} else if patch.ClearDue {
			updates["due_date"] = nil
		}
		if patch.Completed != nil {
			updates["completed"] = *patch.Completed
		}
		if patch.AssignedTo != nil {
			updates["assigned_to"] = *patch.AssignedTo
		}
		if len(updates) > 0 {
			if err := tx.Model(&taskRow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("patch task fields: %w", err)
			}
		}

		if patch.Collaborators != nil {
			return replaceRelations(tx, id, patch.Collaborators, patch.Invites)
		}
		return nil
	})
}

func (s *GormTaskStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&taskRow{})
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("task_id = ?", id).Delete(&collaboratorRow{}).Error; err != nil {
			return fmt.Errorf("delete collaborators: %w", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&inviteRow{}).Error; err != nil {
			return fmt.Errorf("delete invites: %w", err)
		}
		return nil
	})
}

func (s *GormTaskStore) QueryOwned(ctx context.Context, userID string) ([]models.Task, error) {
	var rows []taskRow
	err := s.db.WithContext(ctx).Where("owner_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query owned tasks: %w", err)
	}
	return s.attachRelations(ctx, rows)
}

func (s *GormTaskStore) QueryCollaborating(ctx context.Context, userID string) ([]models.Task, error) {
	var rows []taskRow
	err := s.db.WithContext(ctx).
		Joins("JOIN task_collaborators tc ON tc.task_id = tasks.id").
		Where("tc.user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query collaborating tasks: %w", err)
	}
	return s.attachRelations(ctx, rows)
}

func (s *GormTaskStore) QueryAssigned(ctx context.Context, userID string) ([]models.Task, error) {
	var rows []taskRow
	err := s.db.WithContext(ctx).Where("assigned_to = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query assigned tasks: %w", err)
	}
	return s.attachRelations(ctx, rows)
}

func (s *GormTaskStore) QueryDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	var rows []taskRow
	err := s.db.WithContext(ctx).
		Where("completed = ? AND due_date IS NOT NULL AND due_date >= ? AND due_date < ?", false, from, to).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	return s.attachRelations(ctx, rows)
}

// attachRelations folds collaborator and invite rows into decoded task
// records, rejecting malformed rows instead of letting missing fields leak
// into business logic.
func (s *GormTaskStore) attachRelations(ctx context.Context, rows []taskRow) ([]models.Task, error) {
	if len(rows) == 0 {
		return []models.Task{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var collabRows []collaboratorRow
	err := s.db.WithContext(ctx).
		Where("task_id IN ?", ids).
		Order("task_id, position").
		Find(&collabRows).Error
	if err != nil {
		return nil, fmt.Errorf("load collaborators: %w", err)
	}

	var invRows []inviteRow
	err = s.db.WithContext(ctx).Where("task_id IN ?", ids).Find(&invRows).Error
	if err != nil {
		return nil, fmt.Errorf("load invites: %w", err)
	}

	collabsByTask := map[string][]string{}
	for _, c := range collabRows {
		collabsByTask[c.TaskID] = append(collabsByTask[c.TaskID], c.UserID)
	}
	invitesByTask := map[string]map[string]models.Invite{}
	for _, inv := range invRows {
		if invitesByTask[inv.TaskID] == nil {
			invitesByTask[inv.TaskID] = map[string]models.Invite{}
		}
		invitesByTask[inv.TaskID][inv.UserID] = models.Invite{
			InvitedByID:    inv.InvitedByID,
			InvitedByEmail: inv.InvitedByEmail,
			InvitedByName:  inv.InvitedByName,
			InvitedAt:      inv.InvitedAt,
		}
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, r := range rows {
		task := models.Task{
			ID:            r.ID,
			Title:         r.Title,
			Description:   r.Description,
			DueDate:       r.DueDate,
			Completed:     r.Completed,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
			OwnerID:       r.OwnerID,
			AssignedTo:    r.AssignedTo,
			Collaborators: collabsByTask[r.ID],
			Invites:       invitesByTask[r.ID],
		}
		if task.Collaborators == nil {
			task.Collaborators = []string{}
		}
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("task %s: %w", r.ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func replaceRelations(tx *gorm.DB, taskID string, collaborators []string, invites map[string]models.Invite) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&collaboratorRow{}).Error; err != nil {
		return fmt.Errorf("replace collaborators: %w", err)
	}
	if err := tx.Where("task_id = ?", taskID).Delete(&inviteRow{}).Error; err != nil {
		return fmt.Errorf("replace invites: %w", err)
	}

	for i, uid := range collaborators {
		row := collaboratorRow{TaskID: taskID, UserID: uid, Position: i}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert collaborator: %w", err)
		}
	}
	for uid, inv := range invites {
		row := inviteRow{
			TaskID:         taskID,
			UserID:         uid,
			InvitedByID:    inv.InvitedByID,
			InvitedByEmail: inv.InvitedByEmail,
			InvitedByName:  inv.InvitedByName,
			InvitedAt:      inv.InvitedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert invite: %w", err)
		}
	}
	return nil
}
