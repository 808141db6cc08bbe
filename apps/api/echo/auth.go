package echoapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/auth"
	"github.com/jeevaneswaran/examportal/core/profile"
	identitysvc "github.com/jeevaneswaran/examportal/services/identity"
	"github.com/jeevaneswaran/examportal/storage/session"
)

const (
	contextAuthStateKey = "authState"

	// how long a request is willing to wait for role resolution before
	// answering with a loading response
	settleTimeout = 2 * time.Second
)

type (
	// portalSession pairs a provider client with the auth manager that
	// tracks its state, one per browser session.
	portalSession struct {
		client  identitysvc.Client
		manager *auth.Manager
	}

	sessionRegistry struct {
		mu       sync.Mutex
		sessions map[string]*portalSession
	}
)

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*portalSession)}
}

func (r *sessionRegistry) get(id string) *portalSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// put registers ps under id unless a concurrent request beat us to it,
// in which case the existing entry wins and ps must be discarded.
func (r *sessionRegistry) put(id string, ps *portalSession) (*portalSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing, false
	}
	r.sessions[id] = ps
	return ps, true
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	ps := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ps != nil {
		ps.manager.Close()
	}
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ps := range r.sessions {
		ps.manager.Close()
		delete(r.sessions, id)
	}
}

type authApi struct {
	srv *server
}

func registerAuthAPI(g *echo.Group, srv *server) {
	api := authApi{srv: srv}

	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data profile.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(api.srv.opts.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	ps := api.srv.newPortalSession("")
	ps.manager.Bootstrap(reqCtx)

	meta := auth.Metadata{
		Role:          string(data.Role),
		FirstName:     data.FirstName,
		LastName:      data.LastName,
		ContactNumber: data.ContactNumber,
		Address:       data.Address,
		AvatarURL:     data.AvatarURL,
	}
	if _, err := ps.client.SignUp(reqCtx, data.Email, data.Password, meta); err != nil {
		ps.manager.Close()
		if errors.Cause(err) == identitysvc.ErrEmailTaken {
			return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "email already registered"})
		}
		return errors.Wrap(err, "signing up")
	}

	st, resp, err := api.srv.establishSession(ctx, ps)
	if err != nil {
		return err
	}
	ctx.Set(contextAuthStateKey, st)
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.srv.opts.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	ps := api.srv.newPortalSession("")
	ps.manager.Bootstrap(reqCtx)

	if _, err := ps.client.SignIn(reqCtx, data.Email, data.Password); err != nil {
		ps.manager.Close()
		if errors.Cause(err) == identitysvc.ErrInvalidCredentials {
			return core.NewValidationError(errors.New("invalid credentials"))
		}
		api.srv.opts.Logger.Warn("sign-in rejected by identity provider", err)
		return errAuthenticationFailed
	}

	st, resp, err := api.srv.establishSession(ctx, ps)
	if err != nil {
		return err
	}
	ctx.Set(contextAuthStateKey, st)
	return ctx.JSON(http.StatusOK, resp)
}

func (api *authApi) logout(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	if cookie, err := ctx.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		sid := cookie.Value
		if ps := api.srv.registry.get(sid); ps != nil {
			if err := ps.client.SignOut(reqCtx); err != nil {
				api.srv.opts.Logger.Warn("remote sign-out failed", err)
			}
		}
		api.srv.registry.remove(sid)
		if err := api.srv.opts.Sessions.Delete(reqCtx, sid); err != nil {
			api.srv.opts.Logger.Warn("deleting stored session", err)
		}
	}

	clearSessionCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

// Session plumbing

func (s *server) newPortalSession(cachedRefreshToken string) *portalSession {
	client := s.opts.Identity.NewClientSession(cachedRefreshToken)
	resolver := auth.NewResolver(s.opts.ProfileSvc, s.opts.Logger)
	manager := auth.NewManager(auth.NewStore(), client, resolver, s.opts.Logger)
	return &portalSession{client: client, manager: manager}
}

// establishSession persists the now signed-in provider session, issues
// the session cookie and waits for role resolution to settle.
func (s *server) establishSession(ctx echo.Context, ps *portalSession) (auth.State, *AuthResponse, error) {
	reqCtx := ctx.Request().Context()

	cur := ps.client.CurrentSession()
	if cur == nil {
		ps.manager.Close()
		return auth.State{}, nil, errors.New("no provider session after sign-in")
	}

	sid, err := session.NewID()
	if err != nil {
		ps.manager.Close()
		return auth.State{}, nil, errors.Wrap(err, "generating session id")
	}
	stored := session.Session{
		ID:           sid,
		RefreshToken: cur.RefreshToken,
		ExpiresAt:    time.Now().Add(s.opts.Conf.SessionTTL),
	}
	if err = s.opts.Sessions.Create(reqCtx, stored); err != nil {
		ps.manager.Close()
		return auth.State{}, nil, errors.Wrap(err, "storing session")
	}

	ps, _ = s.registry.put(sid, ps)
	setSessionCookie(ctx, sid, stored.ExpiresAt)

	st := s.settledState(reqCtx, ps)
	return st, newAuthResponse(s.gate, st), nil
}

// settledState waits briefly for the manager to leave its loading
// states; callers get the in-flight state back on timeout.
func (s *server) settledState(ctx context.Context, ps *portalSession) auth.State {
	waitCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	st, err := ps.manager.Store().AwaitSettled(waitCtx)
	if err != nil {
		return ps.manager.State()
	}
	return st
}

// authState resolves the caller's auth state from the session cookie,
// reviving the manager from the stored refresh token when this is the
// first request since the API restarted.
func (s *server) authState(ctx echo.Context) auth.State {
	cookie, err := ctx.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return auth.State{Status: auth.StatusAnonymous}
	}
	sid := cookie.Value

	ps := s.registry.get(sid)
	if ps == nil {
		reqCtx := ctx.Request().Context()
		stored, err := s.opts.Sessions.Get(reqCtx, sid)
		if err != nil {
			s.opts.Logger.Warn("loading stored session", err)
			return auth.State{Status: auth.StatusAnonymous}
		}
		if stored == nil {
			clearSessionCookie(ctx)
			return auth.State{Status: auth.StatusAnonymous}
		}

		fresh := s.newPortalSession(stored.RefreshToken)
		ps, _ = s.registry.put(sid, fresh)
		if ps != fresh {
			fresh.manager.Close()
		} else {
			ps.manager.Bootstrap(reqCtx)
			// the provider rotates refresh tokens on restore
			if cur := ps.client.CurrentSession(); cur != nil && cur.RefreshToken != stored.RefreshToken {
				stored.RefreshToken = cur.RefreshToken
				if err := s.opts.Sessions.Update(reqCtx, *stored); err != nil {
					s.opts.Logger.Warn("persisting rotated refresh token", err)
				}
			}
		}
	}

	return s.settledState(ctx.Request().Context(), ps)
}

func getContextAuthState(ctx echo.Context) (auth.State, bool) {
	st, ok := ctx.Get(contextAuthStateKey).(auth.State)
	return st, ok
}

func setSessionCookie(ctx echo.Context, sid string, expires time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    sid,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	// AuthResponse tells the front end who signed in and where to go next.
	AuthResponse struct {
		ID         string       `json:"id"`
		Email      string       `json:"email"`
		Role       profile.Role `json:"role"`
		IsApproved bool         `json:"is_approved"`
		Status     string       `json:"status"`
		RedirectTo string       `json:"redirect_to"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func newAuthResponse(gate auth.Gate, st auth.State) *AuthResponse {
	resp := &AuthResponse{
		Role:       st.Role,
		IsApproved: st.IsApproved,
		Status:     st.Status.String(),
		RedirectTo: redirectTarget(gate, st),
	}
	if st.Identity != nil {
		resp.ID = st.Identity.ID
		resp.Email = st.Identity.Email
	}
	return resp
}

// redirectTarget picks the post-authentication landing page.
func redirectTarget(gate auth.Gate, st auth.State) string {
	if st.Status != auth.StatusReady {
		return gate.SignInURL
	}
	if st.Role == profile.RoleTeacher && !st.IsApproved {
		return gate.PendingApprovalURL
	}
	if home, ok := gate.RoleHomes[st.Role]; ok {
		return home
	}
	return gate.SignInURL
}
