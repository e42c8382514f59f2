package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"taskshare/backend/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDirectoryUnhealthy = errors.New("user directory unavailable")
)

// Directory resolves user identifiers to canonical profiles. Backed by the
// auth gateway's user endpoints.
type Directory interface {
	UserByID(ctx context.Context, uid string) (*models.UserProfile, error)
	UserByEmail(ctx context.Context, email string) (*models.UserProfile, error)
}

type directoryUser struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`
	Disabled      bool   `json:"disabled"`
}

// HTTPDirectory calls the auth service over HTTP with a hard per-call
// timeout. A service bearer token is attached when configured.
type HTTPDirectory struct {
	baseURL      string
	serviceToken string
	client       *http.Client
}

func NewHTTPDirectory(baseURL, serviceToken string, timeout time.Duration) *HTTPDirectory {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDirectory{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		client:       &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDirectory) UserByID(ctx context.Context, uid string) (*models.UserProfile, error) {
	return d.fetch(ctx, d.baseURL+"/users/"+url.PathEscape(uid))
}

func (d *HTTPDirectory) UserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	return d.fetch(ctx, d.baseURL+"/users/email/"+url.PathEscape(email))
}

func (d *HTTPDirectory) fetch(ctx context.Context, endpoint string) (*models.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	if d.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.serviceToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnhealthy, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrDirectoryUnhealthy, resp.StatusCode)
	}

	var user directoryUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}
	if user.UID == "" {
		return nil, ErrUserNotFound
	}

	profile := &models.UserProfile{ID: user.UID}
	if user.Email != "" {
		email := user.Email
		profile.Email = &email
	}
	if user.DisplayName != "" {
		name := user.DisplayName
		profile.DisplayName = &name
	}
	return profile, nil
}
