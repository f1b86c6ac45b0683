package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	usrRepo   user.Repository
	courseSvc *course.Service
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin|-instructor] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  addsubject -title TITLE [-slug SLUG] - create a subject")
}

// promptPassword reads a password from the terminal, without echoing it.
func promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin owner role.")
	addUserInstructor := addUserCmd.Bool("instructor", false, "Grant the instructor role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	addSubjectCmd := flag.NewFlagSet("addsubject", flag.ContinueOnError)
	addSubjectTitle := addSubjectCmd.String("title", "", "The subject's title.")
	addSubjectSlug := addSubjectCmd.String("slug", "", "The subject's slug. Generated from the title when empty.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" || (*addUserAdmin && *addUserInstructor) {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		roles := user.StudentRoles
		switch {
		case *addUserAdmin:
			roles = []string{user.RoleAdminOwner}
		case *addUserInstructor:
			roles = user.InstructorRoles
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, roles)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "addsubject":
		if err := addSubjectCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSubjectTitle == "" {
			addSubjectCmd.Usage()
			return errHelp
		}
		return cli.addSubject(*addSubjectTitle, *addSubjectSlug)

	default:
		cli.printUsage()
		return errHelp
	}
}
