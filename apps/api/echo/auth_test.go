package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeevaneswaran/examportal/core/profile"
)

func Test_authApi_register(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("student", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/v1/auth/register", marshallObj(t, registration("jane@test.cd", profile.RoleStudent)))

		assert.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeAuthResponse(t, rec)
		assert.Equal(t, "jane@test.cd", resp.Email)
		assert.Equal(t, profile.RoleStudent, resp.Role)
		assert.True(t, resp.IsApproved)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, studentHomePath, resp.RedirectTo)

		cookie := sessionCookie(t, rec)
		assert.True(t, cookie.HttpOnly)
		assert.NotEmpty(t, cookie.Value)
	})

	t.Run("teacher starts unapproved", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/v1/auth/register", marshallObj(t, registration("teach@test.cd", profile.RoleTeacher)))

		assert.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeAuthResponse(t, rec)
		assert.Equal(t, profile.RoleTeacher, resp.Role)
		assert.False(t, resp.IsApproved)
		assert.Equal(t, pendingPath, resp.RedirectTo)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		registerAccount(t, srv, "dup@test.cd", profile.RoleStudent)

		rec := doRequest(srv, http.MethodPost, "/v1/auth/register", marshallObj(t, registration("dup@test.cd", profile.RoleStudent)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
		assert.Contains(t, fields, "email")
	})

	invalid := []struct {
		name   string
		mutate func(*profile.Registration)
	}{
		{name: "admin role not allowed", mutate: func(r *profile.Registration) { r.Role = profile.RoleAdmin }},
		{name: "unknown role", mutate: func(r *profile.Registration) { r.Role = "superuser" }},
		{name: "short password", mutate: func(r *profile.Registration) { r.Password = "shorty"; r.PasswordConfirm = "shorty" }},
		{name: "numeric password", mutate: func(r *profile.Registration) { r.Password = "1234567890"; r.PasswordConfirm = "1234567890" }},
		{name: "password mismatch", mutate: func(r *profile.Registration) { r.PasswordConfirm = "s0methingElse" }},
		{name: "missing email", mutate: func(r *profile.Registration) { r.Email = "" }},
		{name: "missing name", mutate: func(r *profile.Registration) { r.FirstName = "" }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			reg := registration("invalid@test.cd", profile.RoleStudent)
			tt.mutate(&reg)

			rec := doRequest(srv, http.MethodPost, "/v1/auth/register", marshallObj(t, reg))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func Test_authApi_login(t *testing.T) {
	srv, _ := setupServer(t)
	registerAccount(t, srv, "jane@test.cd", profile.RoleStudent)

	t.Run("ok", func(t *testing.T) {
		body := marshallObj(t, LoginRequest{Email: "jane@test.cd", Password: "n0neShallPass"})
		rec := doRequest(srv, http.MethodPost, "/v1/auth/login", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeAuthResponse(t, rec)
		assert.Equal(t, profile.RoleStudent, resp.Role)
		assert.Equal(t, studentHomePath, resp.RedirectTo)
		assert.NotEmpty(t, sessionCookie(t, rec).Value)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := marshallObj(t, LoginRequest{Email: "jane@test.cd", Password: "n0tThePassword"})
		rec := doRequest(srv, http.MethodPost, "/v1/auth/login", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		body := marshallObj(t, LoginRequest{Email: "ghost@test.cd", Password: "n0neShallPass"})
		rec := doRequest(srv, http.MethodPost, "/v1/auth/login", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid credentials")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/v1/auth/login", marshallObj(t, LoginRequest{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_authApi_logout(t *testing.T) {
	srv, _ := setupServer(t)
	cookie, _ := registerAccount(t, srv, "jane@test.cd", profile.RoleStudent)

	rec := doRequest(srv, http.MethodPost, "/v1/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)

	// the old cookie no longer authenticates
	rec = doRequest(srv, http.MethodGet, studentHomePath, nil, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?next=%2Fv1%2Fstudent%2Fdashboard", rec.Header().Get("Location"))

	// logging out again is harmless
	rec = doRequest(srv, http.MethodPost, "/v1/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
