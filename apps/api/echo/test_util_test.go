package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/auth"
	"github.com/jeevaneswaran/examportal/core/profile"
	dummymail "github.com/jeevaneswaran/examportal/services/email/dummy"
	identitysvc "github.com/jeevaneswaran/examportal/services/identity"
	logsvc "github.com/jeevaneswaran/examportal/services/logger"
	inmemdb "github.com/jeevaneswaran/examportal/storage/database/inmem"
	"github.com/jeevaneswaran/examportal/storage/session"
)

type testDeps struct {
	conf       *core.Config
	repo       profile.Repository
	profileSvc profile.ServiceInterface
	identity   identitysvc.Provider
	sessions   session.Store
	mailSvc    *dummymail.Service
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("newTestDeps() failed: %v", err)
	}
	conf := &core.Config{
		AppName:         "Exam Portal",
		TestMode:        true,
		FrontendBaseURL: "http://localhost:3000",
		SessionTTL:      time.Hour,
	}
	repo := inmemdb.NewProfileRepository(db)
	mailSvc := dummymail.NewService(conf.FrontendBaseURL)
	return &testDeps{
		conf:       conf,
		repo:       repo,
		profileSvc: profile.NewService(conf, repo, mailSvc),
		identity:   identitysvc.NewInMemProvider(conf.SessionTTL),
		sessions:   session.NewMemoryStore(),
		mailSvc:    mailSvc,
	}
}

func setupServer(t *testing.T) (Server, *testDeps) {
	t.Helper()
	deps := newTestDeps(t)
	return newServerFor(t, deps), deps
}

// newServerFor builds a server over existing deps, as after an API
// restart that kept its external stores.
func newServerFor(t *testing.T, deps *testDeps) Server {
	t.Helper()

	validate, translator := core.NewValidator()
	profile.RegisterValidators(validate, translator)

	srv := NewServer(&Options{
		Conf:           deps.conf,
		DisableReqLogs: true,
		Logger:         logsvc.NewConsoleLogger(log.New(io.Discard, "", 0)),
		ProfileSvc:     deps.profileSvc,
		Identity:       deps.identity,
		Sessions:       deps.sessions,
		Validate:       validate,
		Translator:     translator,
	})
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func doRequest(handler http.Handler, method, path string, body []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) AuthResponse {
	t.Helper()
	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decodeAuthResponse() failed: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func registration(email string, role profile.Role) profile.Registration {
	return profile.Registration{
		Email:           email,
		Password:        "n0neShallPass",
		PasswordConfirm: "n0neShallPass",
		Role:            role,
		FirstName:       "Grace",
		LastName:        "Ilunga",
		ContactNumber:   "+243000000",
		Address:         "12 Main St",
	}
}

// registerAccount signs an account up through the API and returns its
// session cookie.
func registerAccount(t *testing.T, h http.Handler, email string, role profile.Role) (*http.Cookie, AuthResponse) {
	t.Helper()
	rec := doRequest(h, http.MethodPost, "/v1/auth/register", marshallObj(t, registration(email, role)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("registerAccount() code = %v, body %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec), decodeAuthResponse(t, rec)
}

// createAdmin provisions an admin the way the operator CLI does: an
// identity account plus a pre-approved admin profile row.
func createAdmin(t *testing.T, deps *testDeps, email, pwd string) {
	t.Helper()
	ctx := context.Background()

	client := deps.identity.NewClientSession("")
	sess, err := client.SignUp(ctx, email, pwd, auth.Metadata{Role: string(profile.RoleAdmin)})
	if err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
	if _, err = deps.repo.CreateProfile(ctx, profile.Profile{
		ID:         sess.Identity.ID,
		Email:      email,
		Role:       profile.RoleAdmin,
		IsApproved: true,
	}); err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
	if err = client.SignOut(ctx); err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
}
