package services

import "errors"

// Service-level outcomes. Handlers map these to status codes; callers must
// be able to tell a missing task, a denied operation and a dangling user
// reference apart programmatically.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrForbidden         = errors.New("operation not permitted")
	ErrUserNotFound      = errors.New("user not found")
	ErrOwnerCollaborator = errors.New("task owner cannot be added as a collaborator")
	ErrInvalidInput      = errors.New("invalid input")
)
