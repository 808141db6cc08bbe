package identitysvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/auth"
)

// HTTPProvider talks to a GoTrue-style identity service over REST.
// Password hashing, token issuance and refresh all happen on the
// provider's side; we only exchange grants and read back sessions.
type HTTPProvider struct {
	baseURL string
	secret  []byte
	hc      *http.Client
	logger  core.Logger
}

var _ Provider = (*HTTPProvider)(nil)

func NewHTTPProvider(conf *core.Config, logger core.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: conf.Identity.BaseURL,
		secret:  []byte(conf.Identity.Secret),
		hc:      &http.Client{Timeout: conf.Identity.Timeout},
		logger:  logger,
	}
}

func (p *HTTPProvider) NewClientSession(cachedRefreshToken string) Client {
	return &httpClient{provider: p, cachedRefresh: cachedRefreshToken}
}

// accessClaims is the payload the provider signs into access tokens.
type accessClaims struct {
	jwt.StandardClaims
	Email        string        `json:"email"`
	UserMetadata auth.Metadata `json:"user_metadata"`
}

// tokenResponse is the provider's token/signup payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// providerError is a non-2xx answer from the identity provider.
type providerError struct {
	Status int
	Body   string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("identity provider responded %d: %s", e.Status, e.Body)
}

type httpClient struct {
	provider *HTTPProvider
	emitter

	smu           sync.Mutex
	cachedRefresh string
	cur           *auth.Session
}

var _ Client = (*httpClient)(nil)

func (c *httpClient) CachedSession(ctx context.Context) (*auth.Session, error) {
	c.smu.Lock()
	refresh := c.cachedRefresh
	c.smu.Unlock()

	if refresh == "" {
		return nil, nil
	}
	sess, err := c.provider.exchange(ctx, "refresh_token", map[string]string{"refresh_token": refresh})
	if err != nil {
		return nil, errors.Wrap(err, "restoring cached session")
	}
	c.setCurrent(sess)
	return sess, nil
}

func (c *httpClient) Subscribe(l auth.Listener) auth.Unsubscribe {
	return c.subscribe(l)
}

func (c *httpClient) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	sess, err := c.provider.exchange(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	c.setCurrent(sess)
	c.emit(auth.EventSignedIn, sess)
	return sess, nil
}

func (c *httpClient) SignUp(ctx context.Context, email, password string, meta auth.Metadata) (*auth.Session, error) {
	payload := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     meta,
	}
	var tr tokenResponse
	if err := c.provider.post(ctx, "/signup", payload, &tr); err != nil {
		if pErr, ok := errors.Cause(err).(*providerError); ok &&
			strings.Contains(strings.ToLower(pErr.Body), "already registered") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if tr.AccessToken == "" {
		// provider requires confirmation before issuing tokens; fall
		// through to a plain sign-in attempt
		return c.SignIn(ctx, email, password)
	}
	sess, err := c.provider.session(tr)
	if err != nil {
		return nil, err
	}
	c.setCurrent(sess)
	c.emit(auth.EventSignedIn, sess)
	return sess, nil
}

func (c *httpClient) SignOut(ctx context.Context) error {
	c.smu.Lock()
	cur := c.cur
	c.cur = nil
	c.cachedRefresh = ""
	c.smu.Unlock()

	// local sign-out is immediate; the remote revocation is best effort
	c.emit(auth.EventSignedOut, nil)

	if cur == nil {
		return nil
	}
	if err := c.provider.post(ctx, "/logout", nil, nil, cur.AccessToken); err != nil {
		return errors.Wrap(err, "revoking provider session")
	}
	return nil
}

func (c *httpClient) CurrentSession() *auth.Session {
	c.smu.Lock()
	defer c.smu.Unlock()
	return c.cur
}

func (c *httpClient) setCurrent(sess *auth.Session) {
	c.smu.Lock()
	c.cur = sess
	c.cachedRefresh = sess.RefreshToken
	c.smu.Unlock()
}

// exchange performs a token grant and decodes the resulting session.
func (p *HTTPProvider) exchange(ctx context.Context, grant string, payload map[string]string) (*auth.Session, error) {
	var tr tokenResponse
	if err := p.post(ctx, "/token?grant_type="+grant, payload, &tr); err != nil {
		if pErr, ok := errors.Cause(err).(*providerError); ok &&
			(pErr.Status == http.StatusBadRequest || pErr.Status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return p.session(tr)
}

// session validates the access token and lifts its claims into an Identity.
func (p *HTTPProvider) session(tr tokenResponse) (*auth.Session, error) {
	claims := new(accessClaims)
	_, err := jwt.ParseWithClaims(tr.AccessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing access token")
	}

	return &auth.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Identity: auth.Identity{
			ID:       claims.Subject,
			Email:    claims.Email,
			Metadata: claims.UserMetadata,
		},
	}, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, payload, out interface{}, bearer ...string) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if len(bearer) > 0 {
		req.Header.Set("Authorization", "Bearer "+bearer[0])
	}

	res, err := p.hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling identity provider")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
		return &providerError{Status: res.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decoding response")
		}
	}
	return nil
}
