package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/profile"
)

func (cli *commandLine) pendingTeachers() error {
	ctx := context.Background()

	profs, err := cli.profileSvc.PendingTeachers(ctx)
	if err != nil {
		return err
	}
	if len(profs) == 0 {
		fmt.Println("No teachers awaiting approval.")
		return nil
	}

	w := tabwriter.NewWriter(logger.Writer(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tREGISTERED")
	for _, p := range profs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Email, p.FullName(), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (cli *commandLine) approveTeacher(email string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	prof, err := cli.findByEmail(ctx, email, profile.RoleTeacher)
	if err != nil {
		return err
	}
	if prof.IsApproved {
		fmt.Printf("%s is already approved.\n", prof.Email)
		return nil
	}

	if _, err = cli.profileSvc.Approve(ctx, prof.ID); err != nil {
		return err
	}
	fmt.Printf("Approved %s (%s).\n", prof.FullName(), prof.Email)
	return nil
}

func (cli *commandLine) findByEmail(ctx context.Context, email string, role profile.Role) (profile.Profile, error) {
	profs, err := cli.profileSvc.Filter(ctx, profile.QueryFilter{Search: email, Role: role})
	if err != nil {
		return profile.Profile{}, err
	}
	for _, p := range profs {
		if p.Email == email {
			return p, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}
