package profile

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/jeevaneswaran/examportal/core"
)

// Roles
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

// Known reports whether r is one of the portal roles.
func (r Role) Known() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the application-level record keyed by the identity id.
// It is created lazily on first login and thereafter mutated by
// administrative approval or the identity's own profile edits.
type Profile struct {
	ID            string      `json:"id" db:"id"` // = identity id
	Email         string      `json:"email" db:"email"`
	Role          Role        `json:"role" db:"role"`
	IsApproved    bool        `json:"is_approved" db:"is_approved"`
	FirstName     string      `json:"first_name" db:"first_name"`
	LastName      string      `json:"last_name" db:"last_name"`
	ContactNumber null.String `json:"contact_number" db:"contact_number"`
	Address       null.String `json:"address" db:"address"`
	AvatarURL     null.String `json:"avatar_url" db:"avatar_url"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Profile) IsStudent() bool { return p.Role == RoleStudent }
func (p Profile) IsAdmin() bool   { return p.Role == RoleAdmin }

// Registration contains information needed to sign a new user up with the
// identity provider. Everything except the credentials ends up in the
// identity metadata and, from there, in the provisioned Profile row.
type Registration struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"omitempty,signuprole"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	ContactNumber   string `json:"contact_number" validate:"required"`
	Address         string `json:"address" validate:"required"`
	AvatarURL       string `json:"avatar_url" validate:"omitempty,url"`
}

func (r *Registration) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.FirstName = core.CleanString(r.FirstName)
	r.LastName = core.CleanString(r.LastName)
	r.ContactNumber = core.CleanString(r.ContactNumber)
	r.Address = core.CleanString(r.Address)
	if r.Role == "" {
		r.Role = RoleStudent
	}
	return validate.Struct(r)
}

// UpdateProfile defines what information an identity may change on its own row.
// Role and approval are deliberately absent; approval has its own path.
type UpdateProfile struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
	AvatarURL     string `json:"avatar_url" validate:"omitempty,url"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	up.ContactNumber = core.CleanString(up.ContactNumber)
	up.Address = core.CleanString(up.Address)
	return validate.Struct(up)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Role       Role   `query:"role"`
	IsApproved *bool  `query:"is_approved"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsApproved == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
