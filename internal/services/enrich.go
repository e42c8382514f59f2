package services

import (
	"context"

	"taskshare/backend/internal/identity"
	"taskshare/backend/internal/models"
)

// enricher resolves user identifiers to profiles for a single request,
// memoizing lookups so a user appearing on many tasks costs one directory
// call. Never escapes the request that created it.
type enricher struct {
	dir  identity.Directory
	memo map[string]*models.UserProfile
}

func newEnricher(dir identity.Directory) *enricher {
	return &enricher{dir: dir, memo: make(map[string]*models.UserProfile)}
}

// profile resolves uid, caching both successes and failures. ok is false
// when the directory has no such user or was unreachable.
func (e *enricher) profile(ctx context.Context, uid string) (*models.UserProfile, bool) {
	if uid == "" {
		return nil, false
	}
	if p, seen := e.memo[uid]; seen {
		return p, p != nil
	}

	p, err := e.dir.UserByID(ctx, uid)
	if err != nil {
		e.memo[uid] = nil
		return nil, false
	}
	e.memo[uid] = p
	return p, true
}

// enrichTask builds the client-facing payload: collaborators that fail to
// resolve are dropped, owner and assignee degrade to a raw-id profile, and
// the acting collaborator gets their invite provenance attached.
func (e *enricher) enrichTask(ctx context.Context, task *models.Task, actingUserID string) *models.EnrichedTask {
	out := &models.EnrichedTask{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		OwnerID:     task.OwnerID,
	}

	if p, ok := e.profile(ctx, task.OwnerID); ok {
		out.Owner = *p
	} else {
		out.Owner = models.UnresolvedProfile(task.OwnerID)
	}

	if task.AssignedTo != "" {
		if p, ok := e.profile(ctx, task.AssignedTo); ok {
			assignee := *p
			out.Assignee = &assignee
		} else {
			assignee := models.UnresolvedProfile(task.AssignedTo)
			out.Assignee = &assignee
		}
	}

	out.Collaborators = make([]models.UserProfile, 0, len(task.Collaborators))
	for _, uid := range task.Collaborators {
		if p, ok := e.profile(ctx, uid); ok {
			out.Collaborators = append(out.Collaborators, *p)
		}
	}

	if task.IsCollaborator(actingUserID) {
		if invite, ok := task.Invites[actingUserID]; ok {
			inv := invite
			out.InvitedBy = &inv
		}
	}

	return out
}
