package main

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/storage/database"
)

var (
	readPasswordFunc = func() ([]byte, error) { return term.ReadPassword(int(syscall.Stdin)) } // mockable
	migrateFunc      = database.Migrate                                                         // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	adminSvc   *admin.Service
	studentSvc *student.Service
	validate   *validator.Validate
	out        io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Arya Educations administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.AddCommand(cli.migrateCmd(), cli.addUserCmd(), cli.resetPasswordCmd(), cli.addStudentCmd())
	return root
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(cmd *cobra.Command, label string) (string, error) {
	_, _ = fmt.Fprint(cli.out, label+":")
	pwd, err := readPasswordFunc()
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "run a database migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var uname, email string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "create an admin account; the password is prompted next",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd, "Enter password")
			if err != nil {
				return err
			}
			return cli.addUser(uname, email, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the admin's username")
	cmd.Flags().StringVar(&email, "email", "", "the admin's email, used for password resets")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "reset an admin's password; the password is prompted next",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd, "Enter password")
			if err != nil {
				return err
			}
			return cli.resetPassword(uname, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the admin's username")
	return cmd
}

func (cli *commandLine) addStudentCmd() *cobra.Command {
	var p student.Profile
	var disabled bool
	cmd := &cobra.Command{
		Use:   "addstudent",
		Short: "provision a student; the student sets a password through self-registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.Name == "" || p.Mobile == "" || p.StreamID == "" || p.ClassID == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addStudent(p, !disabled)
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "full name")
	cmd.Flags().StringVar(&p.Mobile, "mobile", "", "10-digit mobile number")
	cmd.Flags().StringVar(&p.StreamID, "stream", "", "stream id")
	cmd.Flags().StringVar(&p.ClassID, "class", "", "class id")
	cmd.Flags().StringVar(&p.City, "city", "", "city")
	cmd.Flags().StringVar(&p.State, "state", "", "state")
	cmd.Flags().BoolVar(&disabled, "no-video", false, "create the student with video access disabled")
	return cmd
}
