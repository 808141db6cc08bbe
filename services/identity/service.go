package identitysvc

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/jeevaneswaran/examportal/core/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

// Provider hands out per-browser-session clients for the external
// identity provider.
type Provider interface {
	// NewClientSession returns a client bound to one logical provider
	// session. cachedRefreshToken seeds CachedSession; pass "" for a
	// fresh visitor.
	NewClientSession(cachedRefreshToken string) Client
}

// Client extends the auth boundary with what the HTTP layer needs to
// persist the provider session between requests.
type Client interface {
	auth.Client

	// CurrentSession returns the live provider session, nil when signed out.
	CurrentSession() *auth.Session
}

// emitter implements listener bookkeeping shared by the provider clients.
// Events are delivered synchronously and in order, as the auth.Listener
// contract requires.
type emitter struct {
	mu        sync.Mutex
	listeners map[int]auth.Listener
	nextID    int
}

func (e *emitter) subscribe(l auth.Listener) auth.Unsubscribe {
	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[int]auth.Listener)
	}
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *emitter) emit(event auth.Event, sess *auth.Session) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	listeners := make([]auth.Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, e.listeners[id])
	}
	e.mu.Unlock()

	for _, l := range listeners {
		l(event, sess)
	}
}
