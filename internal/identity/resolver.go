package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is a verified subject as resolved from a bearer token. It is
// derived per request and never persisted by this service.
type Identity struct {
	ID            string `json:"uid"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

var ErrInvalidToken = errors.New("invalid authentication token")

// TokenResolver exchanges a bearer token for a verified identity. The actual
// identity provider is external; implementations only verify what it issued.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// JWTResolver verifies HS256 tokens issued by the identity gateway.
type JWTResolver struct {
	secret []byte
	issuer string
}

func NewJWTResolver(secret, issuer string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), issuer: issuer}
}

func (r *JWTResolver) Resolve(_ context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(exp), 0).Before(time.Now()) {
			return nil, ErrInvalidToken
		}
	}

	if r.issuer != "" {
		if iss, ok := claims["iss"].(string); ok && iss != r.issuer {
			return nil, ErrInvalidToken
		}
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		// Older gateway tokens carry the subject as user_id.
		subject, _ = claims["user_id"].(string)
	}
	if subject == "" {
		return nil, ErrInvalidToken
	}

	id := &Identity{ID: subject}
	id.Email, _ = claims["email"].(string)
	id.DisplayName, _ = claims["name"].(string)
	id.EmailVerified, _ = claims["email_verified"].(bool)
	return id, nil
}
