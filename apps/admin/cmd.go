package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/jeevaneswaran/examportal/core/profile"
	identitysvc "github.com/jeevaneswaran/examportal/services/identity"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	profileSvc profile.ServiceInterface
	identity   identitysvc.Provider
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|status [ARGS...]  - run database migrations")
	fmt.Println("  pendingteachers                   - list teachers awaiting approval")
	fmt.Println("  approveteacher -email EMAIL       - approve a teacher account")
	fmt.Println("  addadmin -email EMAIL             - create an admin account; the password will be prompted")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	approveTeacherCmd := flag.NewFlagSet("approveteacher", flag.ExitOnError)
	approveTeacherEmail := approveTeacherCmd.String("email", "", "The teacher's email address.")

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email address. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "pendingteachers":
		return cli.pendingTeachers()
	case "approveteacher":
		if err := approveTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *approveTeacherEmail == "" {
			approveTeacherCmd.Usage()
			return errHelp
		}
		return cli.approveTeacher(*approveTeacherEmail)
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addAdminCmd.Usage()
			return errHelp
		}
		return cli.addAdmin(*addAdminEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
