// Package authz holds the task-access decision logic. Decisions are a pure
// function of the task's ownership/collaboration/assignment state and the
// acting user; existence checks happen before authorization so callers can
// tell "no such task" apart from "not allowed".
package authz

import "taskshare/backend/internal/models"

type Operation string

const (
	OpRead               Operation = "read"
	OpUpdate             Operation = "update"
	OpToggle             Operation = "toggle"
	OpDelete             Operation = "delete"
	OpAssign             Operation = "assign"
	OpUnassign           Operation = "unassign"
	OpAddCollaborator    Operation = "add_collaborator"
	OpRemoveCollaborator Operation = "remove_collaborator"
)

// Decide reports whether actorID may perform op on task.
//
// Owner holds every right. Collaborators may read, update, toggle and
// (un)assign. The assignee, by virtue of assignment alone, may only read.
// Deleting and managing the collaborator set stay owner-only.
func Decide(task *models.Task, actorID string, op Operation) bool {
	if task == nil || actorID == "" {
		return false
	}
	if task.IsOwner(actorID) {
		return true
	}

	switch op {
	case OpRead:
		return task.IsCollaborator(actorID) || task.IsAssignee(actorID)
	case OpUpdate, OpToggle, OpAssign, OpUnassign:
		return task.IsCollaborator(actorID)
	case OpDelete, OpAddCollaborator, OpRemoveCollaborator:
		return false
	default:
		return false
	}
}
