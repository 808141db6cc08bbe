package auth

import (
	"context"
	"sync"

	"github.com/jeevaneswaran/examportal/core/profile"
)

type Status int

const (
	StatusBootstrapping Status = iota
	StatusResolving
	StatusReady
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusBootstrapping:
		return "bootstrapping"
	case StatusResolving:
		return "resolving"
	case StatusReady:
		return "ready"
	case StatusAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// State is the authoritative view of who the current caller is.
// Role is only meaningful when Status == StatusReady; IsApproved is
// only meaningful when Role == RoleTeacher.
type State struct {
	Identity   *Identity
	Role       profile.Role
	IsApproved bool
	Status     Status
}

// Store holds the single State instance. It is written exclusively by
// the Manager; everything else (gate, handlers) is a read-only observer.
type Store struct {
	mu      sync.RWMutex
	cur     State
	changed chan struct{}
}

func NewStore() *Store {
	return &Store{
		cur:     State{Status: StatusBootstrapping},
		changed: make(chan struct{}),
	}
}

func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) set(st State) {
	s.mu.Lock()
	s.cur = st
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Await blocks until pred holds (or ctx is done) and returns the state
// it last observed.
func (s *Store) Await(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		s.mu.RLock()
		st, changed := s.cur, s.changed
		s.mu.RUnlock()

		if pred(st) {
			return st, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// AwaitSettled waits for the state to leave its loading statuses.
func (s *Store) AwaitSettled(ctx context.Context) (State, error) {
	return s.Await(ctx, func(st State) bool {
		return st.Status == StatusReady || st.Status == StatusAnonymous
	})
}
