package authz_test

import (
	"testing"

	"taskshare/backend/internal/authz"
	"taskshare/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func sharedTask() *models.Task {
	return &models.Task{
		ID:            "t1",
		Title:         "Quarterly report",
		OwnerID:       "owner",
		AssignedTo:    "assignee",
		Collaborators: []string{"collab1", "collab2"},
	}
}

func TestOwnerHoldsEveryRight(t *testing.T) {
	task := sharedTask()
	ops := []authz.Operation{
		authz.OpRead, authz.OpUpdate, authz.OpToggle, authz.OpDelete,
		authz.OpAssign, authz.OpUnassign,
		authz.OpAddCollaborator, authz.OpRemoveCollaborator,
	}
	for _, op := range ops {
		assert.True(t, authz.Decide(task, "owner", op), "owner should be allowed %s", op)
	}
}

func TestCollaboratorRights(t *testing.T) {
	task := sharedTask()

	assert.True(t, authz.Decide(task, "collab1", authz.OpRead))
	assert.True(t, authz.Decide(task, "collab1", authz.OpUpdate))
	assert.True(t, authz.Decide(task, "collab1", authz.OpToggle))
	assert.True(t, authz.Decide(task, "collab1", authz.OpAssign))
	assert.True(t, authz.Decide(task, "collab1", authz.OpUnassign))

	assert.False(t, authz.Decide(task, "collab1", authz.OpDelete))
	assert.False(t, authz.Decide(task, "collab1", authz.OpAddCollaborator))
	assert.False(t, authz.Decide(task, "collab1", authz.OpRemoveCollaborator))
}

func TestAssigneeMayOnlyRead(t *testing.T) {
	task := sharedTask()

	assert.True(t, authz.Decide(task, "assignee", authz.OpRead))
	assert.False(t, authz.Decide(task, "assignee", authz.OpUpdate))
	assert.False(t, authz.Decide(task, "assignee", authz.OpToggle))
	assert.False(t, authz.Decide(task, "assignee", authz.OpDelete))
	assert.False(t, authz.Decide(task, "assignee", authz.OpAssign))
}

func TestStrangerDeniedEverything(t *testing.T) {
	task := sharedTask()
	ops := []authz.Operation{
		authz.OpRead, authz.OpUpdate, authz.OpToggle, authz.OpDelete,
		authz.OpAssign, authz.OpUnassign,
		authz.OpAddCollaborator, authz.OpRemoveCollaborator,
	}
	for _, op := range ops {
		assert.False(t, authz.Decide(task, "stranger", op))
	}
}

// Delete is allowed iff the actor is the owner, for any membership combination.
func TestDeleteOwnerOnlyProperty(t *testing.T) {
	task := sharedTask()
	for _, actor := range []string{"owner", "collab1", "collab2", "assignee", "stranger", ""} {
		got := authz.Decide(task, actor, authz.OpDelete)
		assert.Equal(t, actor == task.OwnerID, got, "actor %q", actor)
	}
}

// A user who is both collaborator and assignee gets the union of rights.
func TestCollaboratorAssigneeUnion(t *testing.T) {
	task := sharedTask()
	task.AssignedTo = "collab1"

	assert.True(t, authz.Decide(task, "collab1", authz.OpRead))
	assert.True(t, authz.Decide(task, "collab1", authz.OpUpdate))
	assert.True(t, authz.Decide(task, "collab1", authz.OpAssign))
	assert.False(t, authz.Decide(task, "collab1", authz.OpDelete))
}

func TestNilTaskAndEmptyActor(t *testing.T) {
	assert.False(t, authz.Decide(nil, "owner", authz.OpRead))
	assert.False(t, authz.Decide(sharedTask(), "", authz.OpRead))
}
