package identity

import (
	"context"
	"strings"

	"taskshare/backend/internal/models"
)

// ResolveIdentifier turns a human-entered user reference into a canonical
// profile. A reference containing "@" is treated as an email address and
// resolved through the directory; anything else is assumed to be a subject
// id and is still validated against the directory so callers get a uniform
// not-found outcome for dangling references.
//
// The "@" convention is inherited from the clients; this function is its
// single implementation.
func ResolveIdentifier(ctx context.Context, dir Directory, ref string) (*models.UserProfile, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrUserNotFound
	}
	if strings.Contains(ref, "@") {
		return dir.UserByEmail(ctx, ref)
	}
	return dir.UserByID(ctx, ref)
}
