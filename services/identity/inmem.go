package identitysvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeevaneswaran/examportal/core/auth"
)

// InMemProvider is a self-contained identity provider for DEV and tests.
// It plays the external collaborator's part, password hashing included;
// the auth core itself never touches credentials.
type InMemProvider struct {
	sessionTTL time.Duration

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	refresh  map[string]string   // refresh token -> email
}

type account struct {
	id    string
	email string
	hash  []byte
	meta  auth.Metadata
}

var _ Provider = (*InMemProvider)(nil)

func NewInMemProvider(sessionTTL time.Duration) *InMemProvider {
	return &InMemProvider{
		sessionTTL: sessionTTL,
		accounts:   make(map[string]*account),
		refresh:    make(map[string]string),
	}
}

func (p *InMemProvider) NewClientSession(cachedRefreshToken string) Client {
	return &inmemClient{provider: p, cachedRefresh: cachedRefreshToken}
}

func (p *InMemProvider) register(email, password string, meta auth.Metadata) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; ok {
		return nil, ErrEmailTaken
	}
	acct := &account{id: uuid.New().String(), email: email, hash: hash, meta: meta}
	p.accounts[email] = acct
	return acct, nil
}

func (p *InMemProvider) authenticate(email, password string) (*account, error) {
	p.mu.Lock()
	acct, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

func (p *InMemProvider) issue(acct *account) *auth.Session {
	refresh := uuid.New().String()
	p.mu.Lock()
	p.refresh[refresh] = acct.email
	p.mu.Unlock()

	return &auth.Session{
		AccessToken:  uuid.New().String(),
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(p.sessionTTL),
		Identity:     auth.Identity{ID: acct.id, Email: acct.email, Metadata: acct.meta},
	}
}

func (p *InMemProvider) redeem(refreshToken string) *account {
	p.mu.Lock()
	defer p.mu.Unlock()
	email, ok := p.refresh[refreshToken]
	if !ok {
		return nil
	}
	delete(p.refresh, refreshToken) // refresh tokens are single use
	return p.accounts[email]
}

func (p *InMemProvider) revoke(refreshToken string) {
	p.mu.Lock()
	delete(p.refresh, refreshToken)
	p.mu.Unlock()
}

type inmemClient struct {
	provider *InMemProvider
	emitter

	smu           sync.Mutex
	cachedRefresh string
	cur           *auth.Session
}

var _ Client = (*inmemClient)(nil)

func (c *inmemClient) CachedSession(ctx context.Context) (*auth.Session, error) {
	c.smu.Lock()
	refresh := c.cachedRefresh
	c.smu.Unlock()

	if refresh == "" {
		return nil, nil
	}
	acct := c.provider.redeem(refresh)
	if acct == nil {
		return nil, nil
	}
	sess := c.provider.issue(acct)
	c.setCurrent(sess)
	return sess, nil
}

func (c *inmemClient) Subscribe(l auth.Listener) auth.Unsubscribe {
	return c.subscribe(l)
}

func (c *inmemClient) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	acct, err := c.provider.authenticate(email, password)
	if err != nil {
		return nil, err
	}
	sess := c.provider.issue(acct)
	c.setCurrent(sess)
	c.emit(auth.EventSignedIn, sess)
	return sess, nil
}

func (c *inmemClient) SignUp(ctx context.Context, email, password string, meta auth.Metadata) (*auth.Session, error) {
	acct, err := c.provider.register(email, password, meta)
	if err != nil {
		return nil, err
	}
	sess := c.provider.issue(acct)
	c.setCurrent(sess)
	c.emit(auth.EventSignedIn, sess)
	return sess, nil
}

func (c *inmemClient) SignOut(ctx context.Context) error {
	c.smu.Lock()
	cur := c.cur
	c.cur = nil
	refresh := c.cachedRefresh
	c.cachedRefresh = ""
	c.smu.Unlock()

	c.emit(auth.EventSignedOut, nil)

	if cur != nil {
		c.provider.revoke(cur.RefreshToken)
	} else if refresh != "" {
		c.provider.revoke(refresh)
	}
	return nil
}

func (c *inmemClient) CurrentSession() *auth.Session {
	c.smu.Lock()
	defer c.smu.Unlock()
	return c.cur
}

// RefreshSession re-issues the current session and notifies listeners,
// the way a real provider pushes TOKEN_REFRESHED.
func (c *inmemClient) RefreshSession() *auth.Session {
	c.smu.Lock()
	cur := c.cur
	c.smu.Unlock()
	if cur == nil {
		return nil
	}

	acct := c.provider.redeem(cur.RefreshToken)
	if acct == nil {
		return nil
	}
	sess := c.provider.issue(acct)
	c.setCurrent(sess)
	c.emit(auth.EventTokenRefreshed, sess)
	return sess
}

func (c *inmemClient) setCurrent(sess *auth.Session) {
	c.smu.Lock()
	c.cur = sess
	c.cachedRefresh = sess.RefreshToken
	c.smu.Unlock()
}
