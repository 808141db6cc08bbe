package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/profile"
)

func validRegistration() profile.Registration {
	return profile.Registration{
		Email:           "grace@test.cd",
		Password:        "n0neShallPass",
		PasswordConfirm: "n0neShallPass",
		Role:            profile.RoleStudent,
		FirstName:       "Grace",
		LastName:        "Ilunga",
		ContactNumber:   "+243000000",
		Address:         "12 Main St",
	}
}

func TestRegistration_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	profile.RegisterValidators(validate, translator)

	tests := []struct {
		name    string
		mutate  func(*profile.Registration)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *profile.Registration) {}},
		{name: "empty role defaults to student", mutate: func(r *profile.Registration) { r.Role = "" }},
		{name: "teacher role", mutate: func(r *profile.Registration) { r.Role = profile.RoleTeacher }},
		{name: "admin role rejected", mutate: func(r *profile.Registration) { r.Role = profile.RoleAdmin }, wantErr: true},
		{name: "unknown role rejected", mutate: func(r *profile.Registration) { r.Role = "superuser" }, wantErr: true},
		{name: "invalid email", mutate: func(r *profile.Registration) { r.Email = "nope" }, wantErr: true},
		{name: "password mismatch", mutate: func(r *profile.Registration) { r.PasswordConfirm = "s0methingElse" }, wantErr: true},
		{name: "password too short", mutate: func(r *profile.Registration) { r.Password = "shorty1"; r.PasswordConfirm = "shorty1" }, wantErr: true},
		{name: "password all numeric", mutate: func(r *profile.Registration) { r.Password = "1234567890"; r.PasswordConfirm = "1234567890" }, wantErr: true},
		{name: "password with whitespace", mutate: func(r *profile.Registration) { r.Password = "none shall pass"; r.PasswordConfirm = "none shall pass" }, wantErr: true},
		{name: "password similar to email", mutate: func(r *profile.Registration) { r.Password = "grace123"; r.PasswordConfirm = "grace123" }, wantErr: true},
		{name: "bad avatar url", mutate: func(r *profile.Registration) { r.AvatarURL = "not a url" }, wantErr: true},
		{name: "missing contact number", mutate: func(r *profile.Registration) { r.ContactNumber = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration()
			tt.mutate(&reg)

			err := reg.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistration_Validate_cleansInput(t *testing.T) {
	validate, translator := core.NewValidator()
	profile.RegisterValidators(validate, translator)

	reg := validRegistration()
	reg.Email = "  GRACE@Test.CD "
	reg.FirstName = " Grace "

	assert.NoError(t, reg.Validate(validate))
	assert.Equal(t, "grace@test.cd", reg.Email)
	assert.Equal(t, "Grace", reg.FirstName)
}
