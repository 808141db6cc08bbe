package auth

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/profile"
)

// Resolution is the terminal outcome of a role resolution. Role is
// never empty: an unset role is indistinguishable from "still loading"
// and would wedge the gate.
type Resolution struct {
	Role       profile.Role
	IsApproved bool
}

// Resolver maps an identity to a Resolution, provisioning a Profile row
// the first time an identity is seen. It always produces exactly one
// Resolution; collaborator failures degrade to minimal privilege
// instead of surfacing.
type Resolver struct {
	profiles profile.ServiceInterface
	logger   core.Logger
}

func NewResolver(profiles profile.ServiceInterface, logger core.Logger) *Resolver {
	return &Resolver{profiles: profiles, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, ident Identity) (res Resolution) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("panic resolving role for identity %s: %v", ident.ID, rec))
			res = fallbackResolution(ident)
		}
	}()

	p, err := r.profiles.Get(ctx, ident.ID)
	if err == nil {
		return Resolution{Role: p.Role, IsApproved: p.IsApproved}
	}
	if errors.Cause(err) != profile.ErrNotFound {
		// transport failure: trust the metadata hint, minimal privilege
		r.logger.Warn(fmt.Sprintf("profile lookup failed for identity %s; using fallback role", ident.ID), err)
		return fallbackResolution(ident)
	}

	// first login: provision the profile with defaults derived from the
	// identity metadata
	np := newProfileFor(ident)
	created, err := r.profiles.Create(ctx, np)
	if err != nil {
		// a concurrent request may have provisioned the row already
		// (two tabs, same brand-new identity); stay usable either way
		r.logger.Warn(fmt.Sprintf("profile provisioning failed for identity %s; using derived defaults", ident.ID), err)
		return Resolution{Role: np.Role, IsApproved: false}
	}
	return Resolution{Role: created.Role, IsApproved: created.IsApproved}
}

// metadataRole derives a role from the identity metadata, defaulting to
// student when the hint is absent or unknown.
func metadataRole(ident Identity) profile.Role {
	if role := profile.Role(ident.Metadata.Role); role.Known() {
		return role
	}
	return profile.RoleStudent
}

func fallbackResolution(ident Identity) Resolution {
	return Resolution{Role: metadataRole(ident), IsApproved: false}
}

func newProfileFor(ident Identity) profile.Profile {
	role := metadataRole(ident)
	p := profile.Profile{
		ID:        ident.ID,
		Email:     ident.Email,
		Role:      role,
		FirstName: ident.Metadata.FirstName,
		LastName:  ident.Metadata.LastName,
		// teachers require explicit administrative approval
		IsApproved: role != profile.RoleTeacher,
	}
	if v := ident.Metadata.ContactNumber; v != "" {
		p.ContactNumber = null.StringFrom(v)
	}
	if v := ident.Metadata.Address; v != "" {
		p.Address = null.StringFrom(v)
	}
	if v := ident.Metadata.AvatarURL; v != "" {
		p.AvatarURL = null.StringFrom(v)
	}
	return p
}
