package models_test

import (
	"testing"
	"time"

	"taskshare/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTaskValidate(t *testing.T) {
	task := models.Task{ID: "t1", Title: "Buy milk", OwnerID: "X"}
	assert.NoError(t, task.Validate())

	missingTitle := models.Task{ID: "t1", OwnerID: "X"}
	assert.ErrorIs(t, missingTitle.Validate(), models.ErrCorruptRecord)

	missingOwner := models.Task{ID: "t1", Title: "Buy milk"}
	assert.ErrorIs(t, missingOwner.Validate(), models.ErrCorruptRecord)

	missingID := models.Task{Title: "Buy milk", OwnerID: "X"}
	assert.ErrorIs(t, missingID.Validate(), models.ErrCorruptRecord)
}

func TestTaskMembershipHelpers(t *testing.T) {
	task := models.Task{
		ID:            "t1",
		Title:         "Buy milk",
		OwnerID:       "X",
		AssignedTo:    "Y",
		Collaborators: []string{"Y", "Z"},
	}

	assert.True(t, task.IsOwner("X"))
	assert.False(t, task.IsOwner("Y"))
	assert.True(t, task.IsCollaborator("Y"))
	assert.True(t, task.IsCollaborator("Z"))
	assert.False(t, task.IsCollaborator("X"))
	assert.True(t, task.IsAssignee("Y"))
	assert.False(t, task.IsAssignee("Z"))

	// Empty actor never matches, even against empty fields.
	unassigned := models.Task{ID: "t2", Title: "x", OwnerID: "X"}
	assert.False(t, unassigned.IsAssignee(""))
	assert.False(t, unassigned.IsCollaborator(""))
}

func TestTaskPatchEmpty(t *testing.T) {
	assert.True(t, models.TaskPatch{}.Empty())

	title := "new"
	assert.False(t, models.TaskPatch{Title: &title}.Empty())
	assert.False(t, models.TaskPatch{ClearDue: true}.Empty())
	assert.False(t, models.TaskPatch{Collaborators: []string{}}.Empty())

	due := time.Now()
	assert.False(t, models.TaskPatch{DueDate: &due}.Empty())
}

func TestUnresolvedProfile(t *testing.T) {
	p := models.UnresolvedProfile("ghost-uid")
	assert.Equal(t, "ghost-uid", p.ID)
	assert.Nil(t, p.Email)
	assert.Nil(t, p.DisplayName)
}
