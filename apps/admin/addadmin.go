package main

import (
	"context"
	"fmt"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/auth"
	"github.com/jeevaneswaran/examportal/core/profile"
)

// addAdmin registers an identity-provider account for email and creates
// the matching approved admin profile.
func (cli *commandLine) addAdmin(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	client := cli.identity.NewClientSession("")
	sess, err := client.SignUp(ctx, email, pwd, auth.Metadata{Role: string(profile.RoleAdmin)})
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("identity provider returned no session for %s", email)
	}

	prof := profile.Profile{
		ID:         sess.Identity.ID,
		Email:      email,
		Role:       profile.RoleAdmin,
		IsApproved: true,
	}
	if _, err = cli.profileSvc.Create(ctx, prof); err != nil {
		return err
	}

	fmt.Printf("Admin account created for %s.\n", email)
	return client.SignOut(ctx)
}
