package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/jeevaneswaran/examportal/core"
)

// Manager owns the Store and reconciles two independent sources of
// truth: the one-shot cached-session restore at bootstrap and the
// long-lived identity-change subscription. Every delegation to the
// resolver carries a generation; results are committed last-writer-wins
// by generation, not by arrival order, so a slow resolution for an old
// identity can never clobber a newer one.
type Manager struct {
	store    *Store
	client   Client
	resolver *Resolver
	logger   core.Logger

	mu      sync.Mutex
	gen     uint64
	started bool
	unsub   Unsubscribe
}

func NewManager(store *Store, client Client, resolver *Resolver, logger core.Logger) *Manager {
	return &Manager{store: store, client: client, resolver: resolver, logger: logger}
}

// State returns the current auth state snapshot.
func (m *Manager) State() State {
	return m.store.Get()
}

// Store exposes the read side of the state container.
func (m *Manager) Store() *Store {
	return m.store
}

// Bootstrap subscribes to identity changes and restores the cached
// session. Invoked once; later calls are no-ops. Restore failure is
// "no session", never a retryable fault at this layer.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	// subscribe first: a push event may fire before the restore resolves,
	// in which case it must win by generation
	unsub := m.client.Subscribe(m.onIdentityChange)
	m.mu.Lock()
	m.unsub = unsub
	m.mu.Unlock()

	sess, err := m.client.CachedSession(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != 0 {
		// a push event beat the restore; its outcome supersedes ours
		return
	}
	if err != nil {
		m.logger.Warn("session restore failed; treating as signed out", err)
	}
	if err != nil || sess == nil {
		m.gen++
		m.store.set(State{Status: StatusAnonymous})
		return
	}
	m.beginResolution(sess.Identity)
}

// Close releases the identity-change subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (m *Manager) onIdentityChange(event Event, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess == nil {
		// sign-out is immediate: clear role and approval now, and let the
		// generation bump discard any in-flight resolution on arrival
		m.gen++
		m.store.set(State{Status: StatusAnonymous})
		return
	}
	m.beginResolution(sess.Identity)
}

// beginResolution must be called with m.mu held. It publishes the
// Resolving state with the stale role already cleared, then resolves in
// the background under the new generation.
func (m *Manager) beginResolution(ident Identity) {
	m.gen++
	gen := m.gen
	m.store.set(State{Identity: &ident, Status: StatusResolving})

	go func() {
		res := m.resolver.Resolve(context.Background(), ident)
		m.commit(gen, ident, res)
	}()
}

func (m *Manager) commit(gen uint64, ident Identity, res Resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		m.logger.Debug(fmt.Sprintf("discarding stale role resolution for identity %s (gen %d, current %d)", ident.ID, gen, m.gen))
		return
	}
	m.store.set(State{
		Identity:   &ident,
		Role:       res.Role,
		IsApproved: res.IsApproved,
		Status:     StatusReady,
	})
}
