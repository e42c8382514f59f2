package models

import "time"

// UserProfile is the display form of a user reference. Email and DisplayName
// are nil when the identifier could not be resolved against the directory;
// the raw identifier is still returned so clients can render something.
type UserProfile struct {
	ID          string  `json:"uid"`
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
}

// UnresolvedProfile is the degraded form used when directory resolution
// fails for an owner or assignee reference.
func UnresolvedProfile(id string) UserProfile {
	return UserProfile{ID: id}
}

// EnrichedTask is the client-facing task payload: every bare user identifier
// replaced with a resolved profile, plus the acting collaborator's invite
// provenance when present.
type EnrichedTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	OwnerID       string        `json:"owner_id"`
	Owner         UserProfile   `json:"owner"`
	Assignee      *UserProfile  `json:"assignee,omitempty"`
	Collaborators []UserProfile `json:"collaborators"`
	InvitedBy     *Invite       `json:"invited_by,omitempty"`
}
