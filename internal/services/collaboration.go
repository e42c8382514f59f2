package services

import (
	"context"
	"errors"
	"time"

	"taskshare/backend/internal/authz"
	"taskshare/backend/internal/identity"
	"taskshare/backend/internal/logsink"
	"taskshare/backend/internal/models"
	"taskshare/backend/internal/store"
)

// CollaborationService manages who shares a task: the collaborator set with
// its invite provenance, and the single assignee slot.
//
// Collaborator mutations are read-modify-write over the store's atomic
// replace; two concurrent mutations on the same task can lose one of the
// writes. Accepted for now, the write rate on a single task is tiny.
type CollaborationService interface {
	Collaborators(ctx context.Context, userID, taskID string) ([]models.UserProfile, error)
	AddCollaborator(ctx context.Context, userID, taskID, ref string) (*models.EnrichedTask, error)
	RemoveCollaborator(ctx context.Context, userID, taskID, ref string) (*models.EnrichedTask, error)
	Assign(ctx context.Context, userID, taskID, ref string) (*models.EnrichedTask, error)
	Unassign(ctx context.Context, userID, taskID string) (*models.EnrichedTask, error)
}

type CollaborationServiceImpl struct {
	store store.TaskStore
	dir   identity.Directory
	sink  *logsink.Emitter
}

func NewCollaborationService(s store.TaskStore, dir identity.Directory, sink *logsink.Emitter) *CollaborationServiceImpl {
	return &CollaborationServiceImpl{store: s, dir: dir, sink: sink}
}

func (s *CollaborationServiceImpl) emit(level, action string, fields map[string]interface{}) {
	if s.sink != nil {
		s.sink.Emit(level, action, fields)
	}
}

func (s *CollaborationServiceImpl) loadAuthorized(ctx context.Context, userID, taskID string, op authz.Operation) (*models.Task, error) {
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

// resolveRef turns an email or raw identifier into a directory profile.
func (s *CollaborationServiceImpl) resolveRef(ctx context.Context, ref string) (*models.UserProfile, error) {
	p, err := identity.ResolveIdentifier(ctx, s.dir, ref)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return p, nil
}

// Collaborators lists the resolved profiles of everyone sharing the task.
// Visible to the owner and collaborators only.
func (s *CollaborationServiceImpl) Collaborators(ctx context.Context, userID, taskID string) ([]models.UserProfile, error) {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !task.IsOwner(userID) && !task.IsCollaborator(userID) {
		return nil, ErrForbidden
	}
	return newEnricher(s.dir).enrichTask(ctx, task, userID).Collaborators, nil
}

// AddCollaborator grants ref access to the task. Owner only. Adding someone
// who already collaborates is a successful no-op; adding the owner is
// rejected.
func (s *CollaborationServiceImpl) AddCollaborator(ctx context.Context, userID, taskID, ref string) (*models.EnrichedTask, error) {
	task, err := s.loadAuthorized(ctx, userID, taskID, authz.OpAddCollaborator)
	if err != nil {
		return nil, err
	}

	target, err := s.resolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if target.ID == task.OwnerID {
		return nil, ErrOwnerCollaborator
	}
	if task.IsCollaborator(target.ID) {
		return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
	}

	collaborators := append(append([]string{}, task.Collaborators...), target.ID)
	invites := make(map[string]models.Invite, len(task.Invites)+1)
	for k, v := range task.Invites {
		invites[k] = v
	}
	invites[target.ID] = s.inviteProvenance(ctx, userID)

	if err := s.store.Patch(ctx, taskID, models.TaskPatch{
		Collaborators: collaborators,
		Invites:       invites,
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task, err = s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.emit("info", "collaborator_added", map[string]interface{}{
		"task_id": taskID, "user_id": userID, "collaborator_id": target.ID,
	})
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}

// inviteProvenance snapshots who is granting access. Directory failures
// degrade to the bare identifier; the grant itself must not fail on them.
func (s *CollaborationServiceImpl) inviteProvenance(ctx context.Context, inviterID string) models.Invite {
	inv := models.Invite{InvitedByID: inviterID, InvitedAt: time.Now().UTC()}
	if p, err := s.dir.UserByID(ctx, inviterID); err == nil {
		if p.Email != nil {
			inv.InvitedByEmail = *p.Email
		}
		if p.DisplayName != nil {
			inv.InvitedByName = *p.DisplayName
		}
	}
	return inv
}

// RemoveCollaborator revokes ref's access. Owner only. Removing someone who
// is not a collaborator is a successful no-op; the invite record is purged
// together with the membership.
func (s *CollaborationServiceImpl) RemoveCollaborator(ctx context.Context, userID, taskID, ref string) (*models.EnrichedTask, error) {
	task, err := s.loadAuthorized(ctx, userID, taskID, authz.OpRemoveCollaborator)
	if err != nil {
		return nil, err
	}

	target, err := s.resolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !task.IsCollaborator(target.ID) {
		return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
	}

	collaborators := make([]string, 0, len(task.Collaborators))
	for _, c := range task.Collaborators {
		if c != target.ID {
			collaborators = append(collaborators, c)
		}
	}
	invites := make(map[string]models.Invite, len(task.Invites))
	for k, v := range task.Invites {
		if k != target.ID {
			invites[k] = v
		}
	}

	if err := s.store.Patch(ctx, taskID, models.TaskPatch{
		Collaborators: collaborators,
		Invites:       invites,
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task, err = s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.emit("info", "collaborator_removed", map[string]interface{}{
		"task_id": taskID, "user_id": userID, "collaborator_id": target.ID,
	})
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}

// Assign hands the task to ref. Owner or collaborator may assign; the
// assignee need not be a collaborator and gains read access only.
func (s *CollaborationServiceImpl) Assign(ctx context.Context, userID, taskID, ref string) (*models.EnrichedTask, error) {
	if _, err := s.loadAuthorized(ctx, userID, taskID, authz.OpAssign); err != nil {
		return nil, err
	}

	target, err := s.resolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := s.store.Patch(ctx, taskID, models.TaskPatch{AssignedTo: &target.ID}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.emit("info", "task_assigned", map[string]interface{}{
		"task_id": taskID, "user_id": userID, "assignee_id": target.ID,
	})
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}

// Unassign clears the assignee slot. Already-unassigned tasks succeed.
func (s *CollaborationServiceImpl) Unassign(ctx context.Context, userID, taskID string) (*models.EnrichedTask, error) {
	if _, err := s.loadAuthorized(ctx, userID, taskID, authz.OpUnassign); err != nil {
		return nil, err
	}

	empty := ""
	if err := s.store.Patch(ctx, taskID, models.TaskPatch{AssignedTo: &empty}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.emit("info", "task_unassigned", map[string]interface{}{
		"task_id": taskID, "user_id": userID,
	})
	return newEnricher(s.dir).enrichTask(ctx, task, userID), nil
}
