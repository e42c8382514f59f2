package services_test

import (
	"context"
	"testing"
	"time"

	"taskshare/backend/internal/identity"
	"taskshare/backend/internal/models"
	"taskshare/backend/internal/services"
	"taskshare/backend/internal/store"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeDirectory is an in-memory user directory. Identifiers absent from the
// map behave like deleted accounts.
type fakeDirectory struct {
	byID    map[string]*models.UserProfile
	byEmail map[string]*models.UserProfile
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byID:    make(map[string]*models.UserProfile),
		byEmail: make(map[string]*models.UserProfile),
	}
}

func (d *fakeDirectory) add(id, email, name string) {
	p := &models.UserProfile{ID: id, Email: &email, DisplayName: &name}
	d.byID[id] = p
	d.byEmail[email] = p
}

func (d *fakeDirectory) UserByID(_ context.Context, id string) (*models.UserProfile, error) {
	if p, ok := d.byID[id]; ok {
		return p, nil
	}
	return nil, identity.ErrUserNotFound
}

func (d *fakeDirectory) UserByEmail(_ context.Context, email string) (*models.UserProfile, error) {
	if p, ok := d.byEmail[email]; ok {
		return p, nil
	}
	return nil, identity.ErrUserNotFound
}

type ServicesTestSuite struct {
	suite.Suite
	ctx    context.Context
	db     *gorm.DB
	store  store.TaskStore
	dir    *fakeDirectory
	tasks  services.TaskService
	collab services.CollaborationService
}

func (s *ServicesTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(store.AutoMigrate(db))

	s.ctx = context.Background()
	s.db = db
	s.store = store.NewGormTaskStore(db)
	s.dir = newFakeDirectory()
	s.dir.add("alice", "alice@example.com", "Alice")
	s.dir.add("bob", "bob@example.com", "Bob")
	s.dir.add("carol", "carol@example.com", "Carol")

	s.tasks = services.NewTaskService(s.store, s.dir, nil)
	s.collab = services.NewCollaborationService(s.store, s.dir, nil)
}

func (s *ServicesTestSuite) mustCreate(owner, title string) *models.EnrichedTask {
	s.T().Helper()
	task, err := s.tasks.Create(s.ctx, owner, services.CreateTaskInput{Title: title})
	s.Require().NoError(err)
	return task
}

func TestServicesTestSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}

func (s *ServicesTestSuite) TestCreateSetsOwnerAndEnriches() {
	due := time.Now().UTC().Add(24 * time.Hour)
	task, err := s.tasks.Create(s.ctx, "alice", services.CreateTaskInput{
		Title:       "Ship release",
		Description: "cut the tag",
		DueDate:     &due,
	})
	s.Require().NoError(err)

	s.NotEmpty(task.ID)
	s.Equal("alice", task.OwnerID)
	s.Equal("Ship release", task.Title)
	s.Require().NotNil(task.Owner.Email)
	s.Equal("alice@example.com", *task.Owner.Email)
	s.Empty(task.Collaborators)
	s.Nil(task.Assignee)
	s.False(task.Completed)
}

func (s *ServicesTestSuite) TestCreateRejectsBlankTitle() {
	_, err := s.tasks.Create(s.ctx, "alice", services.CreateTaskInput{Title: "   "})
	s.ErrorIs(err, services.ErrInvalidInput)
}

func (s *ServicesTestSuite) TestGetVisibilityPerRelation() {
	created := s.mustCreate("alice", "Shared work")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)
	_, err = s.collab.Assign(s.ctx, "alice", created.ID, "carol")
	s.Require().NoError(err)

	for _, viewer := range []string{"alice", "bob", "carol"} {
		got, err := s.tasks.Get(s.ctx, viewer, created.ID)
		s.Require().NoError(err, "viewer %s", viewer)
		s.Equal(created.ID, got.ID)
	}

	_, err = s.tasks.Get(s.ctx, "mallory", created.ID)
	s.ErrorIs(err, services.ErrForbidden)

	_, err = s.tasks.Get(s.ctx, "alice", "no-such-task")
	s.ErrorIs(err, services.ErrTaskNotFound)
}

func (s *ServicesTestSuite) TestListDeduplicatesAcrossRelations() {
	created := s.mustCreate("alice", "Wears two hats")
	// alice is owner and also assignee: the task is reachable through two
	// relation queries but must appear once.
	_, err := s.collab.Assign(s.ctx, "alice", created.ID, "alice")
	s.Require().NoError(err)

	listed, err := s.tasks.List(s.ctx, "alice", services.ListOptions{})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(created.ID, listed[0].ID)
}

func (s *ServicesTestSuite) TestListFilters() {
	owned := s.mustCreate("alice", "Alice owns this")
	theirs := s.mustCreate("bob", "Bob owns this")
	_, err := s.collab.AddCollaborator(s.ctx, "bob", theirs.ID, "alice")
	s.Require().NoError(err)
	assigned := s.mustCreate("carol", "Carol delegates")
	_, err = s.collab.Assign(s.ctx, "carol", assigned.ID, "alice")
	s.Require().NoError(err)

	all, err := s.tasks.List(s.ctx, "alice", services.ListOptions{})
	s.Require().NoError(err)
	s.Len(all, 3)

	ownedOnly, err := s.tasks.List(s.ctx, "alice", services.ListOptions{Filter: services.FilterOwned})
	s.Require().NoError(err)
	s.Require().Len(ownedOnly, 1)
	s.Equal(owned.ID, ownedOnly[0].ID)

	collabOnly, err := s.tasks.List(s.ctx, "alice", services.ListOptions{Filter: services.FilterCollaborating})
	s.Require().NoError(err)
	s.Require().Len(collabOnly, 1)
	s.Equal(theirs.ID, collabOnly[0].ID)

	assignedOnly, err := s.tasks.List(s.ctx, "alice", services.ListOptions{Filter: services.FilterAssigned})
	s.Require().NoError(err)
	s.Require().Len(assignedOnly, 1)
	s.Equal(assigned.ID, assignedOnly[0].ID)
}

func (s *ServicesTestSuite) TestListSearchIsCaseInsensitive() {
	s.mustCreate("alice", "Groceries")
	match := s.mustCreate("alice", "Fix the ROOF")
	desc, err := s.tasks.Create(s.ctx, "alice", services.CreateTaskInput{
		Title:       "Weekend",
		Description: "patch the roof flashing",
	})
	s.Require().NoError(err)

	found, err := s.tasks.List(s.ctx, "alice", services.ListOptions{Search: "roof"})
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	ids := []string{found[0].ID, found[1].ID}
	s.Contains(ids, match.ID)
	s.Contains(ids, desc.ID)
}

func (s *ServicesTestSuite) TestListSortsNewestFirstZeroTimeLast() {
	old := s.mustCreate("alice", "old")
	mid := s.mustCreate("alice", "mid")
	newest := s.mustCreate("alice", "new")

	base := time.Now().UTC()
	s.setCreatedAt(old.ID, base.Add(-2*time.Hour))
	s.setCreatedAt(mid.ID, base.Add(-time.Hour))
	s.setCreatedAt(newest.ID, base)

	// A record that predates timestamping sorts after everything else.
	undated := s.mustCreate("alice", "undated")
	s.setCreatedAt(undated.ID, time.Time{})

	listed, err := s.tasks.List(s.ctx, "alice", services.ListOptions{})
	s.Require().NoError(err)
	s.Require().Len(listed, 4)
	s.Equal(newest.ID, listed[0].ID)
	s.Equal(mid.ID, listed[1].ID)
	s.Equal(old.ID, listed[2].ID)
	s.Equal(undated.ID, listed[3].ID)
}

func (s *ServicesTestSuite) TestUpdatePermissions() {
	created := s.mustCreate("alice", "Draft")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)
	_, err = s.collab.Assign(s.ctx, "alice", created.ID, "carol")
	s.Require().NoError(err)

	title := "Edited by collaborator"
	got, err := s.tasks.Update(s.ctx, "bob", created.ID, services.UpdateTaskInput{Title: &title})
	s.Require().NoError(err)
	s.Equal("Edited by collaborator", got.Title)

	// Assignment alone does not grant write access.
	_, err = s.tasks.Update(s.ctx, "carol", created.ID, services.UpdateTaskInput{Title: &title})
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *ServicesTestSuite) TestUpdateClearsDueDate() {
	due := time.Now().UTC().Add(48 * time.Hour)
	created, err := s.tasks.Create(s.ctx, "alice", services.CreateTaskInput{Title: "Dated", DueDate: &due})
	s.Require().NoError(err)
	s.Require().NotNil(created.DueDate)

	got, err := s.tasks.Update(s.ctx, "alice", created.ID, services.UpdateTaskInput{ClearDue: true})
	s.Require().NoError(err)
	s.Nil(got.DueDate)
}

func (s *ServicesTestSuite) TestUpdateRejectsBlankTitle() {
	created := s.mustCreate("alice", "Keep me")
	blank := ""
	_, err := s.tasks.Update(s.ctx, "alice", created.ID, services.UpdateTaskInput{Title: &blank})
	s.ErrorIs(err, services.ErrInvalidInput)
}

func (s *ServicesTestSuite) TestDeleteIsOwnerOnly() {
	created := s.mustCreate("alice", "Protected")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	s.ErrorIs(s.tasks.Delete(s.ctx, "bob", created.ID), services.ErrForbidden)
	s.Require().NoError(s.tasks.Delete(s.ctx, "alice", created.ID))

	_, err = s.tasks.Get(s.ctx, "alice", created.ID)
	s.ErrorIs(err, services.ErrTaskNotFound)
}

func (s *ServicesTestSuite) TestToggleFlipsCompletion() {
	created := s.mustCreate("alice", "Flip me")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	got, err := s.tasks.Toggle(s.ctx, "bob", created.ID)
	s.Require().NoError(err)
	s.True(got.Completed)

	got, err = s.tasks.Toggle(s.ctx, "alice", created.ID)
	s.Require().NoError(err)
	s.False(got.Completed)
}

func (s *ServicesTestSuite) TestAddCollaboratorByEmail() {
	created := s.mustCreate("alice", "Shared")

	got, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob@example.com")
	s.Require().NoError(err)
	s.Require().Len(got.Collaborators, 1)
	s.Equal("bob", got.Collaborators[0].ID)

	// The new collaborator sees who invited them.
	seen, err := s.tasks.Get(s.ctx, "bob", created.ID)
	s.Require().NoError(err)
	s.Require().NotNil(seen.InvitedBy)
	s.Equal("alice", seen.InvitedBy.InvitedByID)
	s.Equal("alice@example.com", seen.InvitedBy.InvitedByEmail)
	s.False(seen.InvitedBy.InvitedAt.IsZero())

	// The inviter does not get an invite record of their own.
	mine, err := s.tasks.Get(s.ctx, "alice", created.ID)
	s.Require().NoError(err)
	s.Nil(mine.InvitedBy)
}

func (s *ServicesTestSuite) TestAddCollaboratorIsOwnerOnly() {
	created := s.mustCreate("alice", "Shared")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	_, err = s.collab.AddCollaborator(s.ctx, "bob", created.ID, "carol")
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *ServicesTestSuite) TestAddCollaboratorRejectsOwner() {
	created := s.mustCreate("alice", "Mine")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "alice@example.com")
	s.ErrorIs(err, services.ErrOwnerCollaborator)
}

func (s *ServicesTestSuite) TestAddCollaboratorUnknownUser() {
	created := s.mustCreate("alice", "Shared")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "nobody@example.com")
	s.ErrorIs(err, services.ErrUserNotFound)
}

func (s *ServicesTestSuite) TestAddCollaboratorIsIdempotent() {
	created := s.mustCreate("alice", "Shared")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	got, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob@example.com")
	s.Require().NoError(err)
	s.Len(got.Collaborators, 1)
}

func (s *ServicesTestSuite) TestRemoveCollaboratorRevokesAccess() {
	created := s.mustCreate("alice", "Shared")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	got, err := s.collab.RemoveCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)
	s.Empty(got.Collaborators)

	_, err = s.tasks.Get(s.ctx, "bob", created.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *ServicesTestSuite) TestRemoveCollaboratorPurgesInvite() {
	created := s.mustCreate("alice", "Shared")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)
	_, err = s.collab.RemoveCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	// Re-adding must mint a fresh invite, not resurrect the old one.
	raw, err := s.store.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.NotContains(raw.Invites, "bob")
}

func (s *ServicesTestSuite) TestRemoveCollaboratorIsIdempotent() {
	created := s.mustCreate("alice", "Shared")
	got, err := s.collab.RemoveCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)
	s.Empty(got.Collaborators)
}

func (s *ServicesTestSuite) TestCollaboratorsListingVisibility() {
	created := s.mustCreate("alice", "Shared")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)
	_, err = s.collab.Assign(s.ctx, "alice", created.ID, "carol")
	s.Require().NoError(err)

	profiles, err := s.collab.Collaborators(s.ctx, "bob", created.ID)
	s.Require().NoError(err)
	s.Require().Len(profiles, 1)
	s.Equal("bob", profiles[0].ID)

	// Assignment alone does not expose the collaborator roster.
	_, err = s.collab.Collaborators(s.ctx, "carol", created.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *ServicesTestSuite) TestAssignByCollaboratorAndUnassign() {
	created := s.mustCreate("alice", "Delegable")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	got, err := s.collab.Assign(s.ctx, "bob", created.ID, "carol@example.com")
	s.Require().NoError(err)
	s.Require().NotNil(got.Assignee)
	s.Equal("carol", got.Assignee.ID)

	_, err = s.collab.Assign(s.ctx, "carol", created.ID, "carol")
	s.ErrorIs(err, services.ErrForbidden, "assignee cannot reassign")

	got, err = s.collab.Unassign(s.ctx, "bob", created.ID)
	s.Require().NoError(err)
	s.Nil(got.Assignee)

	_, err = s.tasks.Get(s.ctx, "carol", created.ID)
	s.ErrorIs(err, services.ErrForbidden, "unassignment revokes read access")
}

func (s *ServicesTestSuite) TestEnrichmentDropsUnresolvableCollaborators() {
	created := s.mustCreate("alice", "Shared")
	_, err := s.collab.AddCollaborator(s.ctx, "alice", created.ID, "bob")
	s.Require().NoError(err)

	// bob's account disappears from the directory afterwards.
	delete(s.dir.byID, "bob")
	delete(s.dir.byEmail, "bob@example.com")

	got, err := s.tasks.Get(s.ctx, "alice", created.ID)
	s.Require().NoError(err)
	s.Empty(got.Collaborators)
}

func (s *ServicesTestSuite) TestEnrichmentFallsBackForOwnerAndAssignee() {
	created := s.mustCreate("alice", "Orphaned")
	_, err := s.collab.Assign(s.ctx, "alice", created.ID, "carol")
	s.Require().NoError(err)

	delete(s.dir.byID, "alice")
	delete(s.dir.byID, "carol")

	got, err := s.tasks.Get(s.ctx, "alice", created.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.Owner.ID)
	s.Nil(got.Owner.Email)
	s.Require().NotNil(got.Assignee)
	s.Equal("carol", got.Assignee.ID)
	s.Nil(got.Assignee.Email)
}

// setCreatedAt rewrites the creation timestamp directly in the database; the
// service surface deliberately offers no way to do this.
func (s *ServicesTestSuite) setCreatedAt(taskID string, at time.Time) {
	s.T().Helper()
	err := s.db.Exec("UPDATE tasks SET created_at = ? WHERE id = ?", at, taskID).Error
	s.Require().NoError(err)
}
