package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/profile"
	dummymail "github.com/jeevaneswaran/examportal/services/email/dummy"
	inmemdb "github.com/jeevaneswaran/examportal/storage/database/inmem"
)

func setup(t *testing.T) (*profile.Service, profile.Repository, *dummymail.Service) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := &core.Config{AppName: "Exam Portal", FrontendBaseURL: "http://localhost:3000"}
	repo := inmemdb.NewProfileRepository(db)
	mailSvc := dummymail.NewService(conf.FrontendBaseURL)
	return profile.NewService(conf, repo, mailSvc), repo, mailSvc
}

func createProfile(t *testing.T, svc profile.ServiceInterface, id, email string, role profile.Role, approved bool) profile.Profile {
	t.Helper()
	p, err := svc.Create(context.Background(), profile.Profile{
		ID:         id,
		Email:      email,
		Role:       role,
		IsApproved: approved,
		FirstName:  "First" + id,
		LastName:   "Last" + id,
	})
	if err != nil {
		t.Fatalf("createProfile() failed: %v", err)
	}
	return p
}

func TestService_Create(t *testing.T) {
	svc, _, mailSvc := setup(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, profile.Profile{
		ID:        "u1",
		Email:     "jane@test.cd",
		Role:      profile.RoleStudent,
		FirstName: "Jane",
		LastName:  "Doe",
	})
	assert.NoError(t, err)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	sent := mailSvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "Welcome to Exam Portal", sent[0].Subject)
		assert.Equal(t, "jane@test.cd", sent[0].To[0].Address)
	}

	// same identity cannot be provisioned twice
	_, err = svc.Create(ctx, profile.Profile{ID: "u1", Email: "other@test.cd"})
	assert.Equal(t, profile.ErrProfileExists, err)
}

func TestService_Get(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	want := createProfile(t, svc, "u1", "jane@test.cd", profile.RoleStudent, true)

	got, err := svc.Get(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.Get(ctx, "nope")
	assert.Equal(t, profile.ErrNotFound, err)
}

func TestService_Update_onlySetFields(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	orig := createProfile(t, svc, "u1", "jane@test.cd", profile.RoleStudent, true)

	got, err := svc.Update(ctx, "u1", profile.UpdateProfile{FirstName: "Janet", ContactNumber: "+243000000"})
	assert.NoError(t, err)
	assert.Equal(t, "Janet", got.FirstName)
	assert.Equal(t, orig.LastName, got.LastName)
	assert.Equal(t, "+243000000", got.ContactNumber.String)
	assert.True(t, got.UpdatedAt.After(orig.UpdatedAt))

	_, err = svc.Update(ctx, "nope", profile.UpdateProfile{FirstName: "X"})
	assert.Equal(t, profile.ErrNotFound, err)
}

func TestService_Approve(t *testing.T) {
	svc, _, mailSvc := setup(t)
	ctx := context.Background()

	student := createProfile(t, svc, "s1", "student@test.cd", profile.RoleStudent, true)
	teacher := createProfile(t, svc, "t1", "teacher@test.cd", profile.RoleTeacher, false)
	sentBefore := len(mailSvc.SentMessages())

	_, err := svc.Approve(ctx, student.ID)
	assert.Equal(t, profile.ErrNotTeacher, err)

	got, err := svc.Approve(ctx, teacher.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsApproved)

	sent := mailSvc.SentMessages()
	if assert.Len(t, sent, sentBefore+1) {
		assert.Equal(t, "Your teacher account has been approved", sent[sentBefore].Subject)
		assert.Equal(t, "teacher@test.cd", sent[sentBefore].To[0].Address)
	}

	// approving again is a no-op, no duplicate notification
	got, err = svc.Approve(ctx, teacher.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsApproved)
	assert.Len(t, mailSvc.SentMessages(), sentBefore+1)

	_, err = svc.Approve(ctx, "nope")
	assert.Equal(t, profile.ErrNotFound, err)
}

func TestService_PendingTeachers(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	createProfile(t, svc, "s1", "student@test.cd", profile.RoleStudent, true)
	createProfile(t, svc, "t1", "approved@test.cd", profile.RoleTeacher, true)
	pending := createProfile(t, svc, "t2", "pending@test.cd", profile.RoleTeacher, false)

	got, err := svc.PendingTeachers(ctx)
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, pending.ID, got[0].ID)
	}
}

func TestService_Filter(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	student := createProfile(t, svc, "s1", "moise@test.cd", profile.RoleStudent, true)
	teacher := createProfile(t, svc, "t1", "grace@test.cd", profile.RoleTeacher, true)

	got, err := svc.Filter(ctx, profile.QueryFilter{Role: profile.RoleTeacher})
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, teacher.ID, got[0].ID)
	}

	got, err = svc.Filter(ctx, profile.QueryFilter{Search: "MOISE"})
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, student.ID, got[0].ID)
	}

	got, err = svc.Filter(ctx, profile.QueryFilter{Search: "nobody"})
	assert.NoError(t, err)
	assert.Empty(t, got)
}
