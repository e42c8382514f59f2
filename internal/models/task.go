package models

import (
	"errors"
	"time"
)

// Task is the canonical task record as persisted by the store. User
// identifiers (owner, assignee, collaborators) are subjects issued by the
// external identity provider and are treated as opaque strings.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	OwnerID    string `json:"owner_id"`
	AssignedTo string `json:"assigned_to,omitempty"`

	// Collaborators keeps insertion order; order is irrelevant for access
	// decisions but preserved for invite provenance.
	Collaborators []string          `json:"collaborators"`
	Invites       map[string]Invite `json:"collaborator_invites,omitempty"`
}

// Invite records who granted a collaborator access and when.
type Invite struct {
	InvitedByID    string    `json:"invited_by_uid"`
	InvitedByEmail string    `json:"invited_by_email,omitempty"`
	InvitedByName  string    `json:"invited_by_name,omitempty"`
	InvitedAt      time.Time `json:"invited_at"`
}

var ErrCorruptRecord = errors.New("corrupt task record")

// Validate rejects records that must never leave the store boundary.
func (t *Task) Validate() error {
	if t.ID == "" || t.Title == "" || t.OwnerID == "" {
		return ErrCorruptRecord
	}
	return nil
}

func (t *Task) IsOwner(userID string) bool {
	return userID != "" && t.OwnerID == userID
}

func (t *Task) IsCollaborator(userID string) bool {
	if userID == "" {
		return false
	}
	for _, c := range t.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

func (t *Task) IsAssignee(userID string) bool {
	return userID != "" && t.AssignedTo == userID
}

// TaskPatch is a partial-field update applied atomically by the store. Nil
// pointer fields are left untouched. A non-nil Collaborators slice replaces
// the whole collaborator set together with the invite map in one write.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool
	Completed   *bool

	// AssignedTo pointing at an empty string clears the assignment.
	AssignedTo *string

	Collaborators []string
	Invites       map[string]Invite
}

// Empty reports whether applying the patch would change nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		!p.ClearDue && p.Completed == nil && p.AssignedTo == nil &&
		p.Collaborators == nil
}
