package auth

import (
	"context"
	"time"
)

// Metadata carries the identity-supplied personal fields collected at
// sign-up. The role is only a hint: the Profile row is authoritative
// once it exists.
type Metadata struct {
	Role          string `json:"role,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	Address       string `json:"address,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// Identity is the opaque authenticated-subject record issued by the
// identity provider. It is owned and mutated exclusively by the
// provider; this core only reads it.
type Identity struct {
	ID       string
	Email    string
	Metadata Metadata
}

// Session is an identity-provider session.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     Identity
}

type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener is notified of identity changes. session is nil on sign-out.
// Implementations of Client must invoke listeners synchronously and in
// event order; the manager relies on arrival order for its generation
// bookkeeping.
type Listener func(event Event, session *Session)

type Unsubscribe func()

// Client is the boundary with the external identity provider. All calls
// report failure through the returned error, never by panicking.
// A Client instance represents one logical provider session (one
// browser session in the portal).
type Client interface {
	// CachedSession restores the provider session cached from a previous
	// visit, if any. A nil Session with a nil error means "no session".
	CachedSession(ctx context.Context) (*Session, error)

	// Subscribe registers a listener for subsequent identity changes.
	Subscribe(l Listener) Unsubscribe

	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, meta Metadata) (*Session, error)
	SignOut(ctx context.Context) error
}
