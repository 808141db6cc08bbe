package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
)

// Session maps a portal browser session to its identity-provider
// session. It stores only pointers to the provider's state, never auth
// decisions; role and approval always come from the auth core.
type Session struct {
	ID           string    `json:"id"`
	RefreshToken string    `json:"refresh_token"` // provider refresh token, the "cached session"
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store persists browser sessions between requests.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error) // (nil, nil) when not found
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// NewID generates a cryptographically secure session id (256 bits).
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating session id")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
