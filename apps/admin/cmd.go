package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *database.DB
	usrRepo user.Repository
	clsRepo classroom.Repository
	out     io.Writer
}

func (cli *commandLine) writer() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cli.writer(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.writer())
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Riyaaz administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.writer())
	root.SetErr(cli.writer())

	root.AddCommand(cli.addUserCmd())
	root.AddCommand(cli.resetPasswordCmd())
	root.AddCommand(cli.migrateCmd())
	root.AddCommand(cli.joinCodeCmd())
	return root
}

// run executes the command described by args, args[0] being the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		uname, email, name            string
		isAdmin, isTeacher, isStudent bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user; the password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" || email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}

			var roles []string
			switch {
			case isAdmin:
				roles = user.AllRoles
			case isTeacher:
				roles = []string{user.RoleTeacher}
			case isStudent:
				roles = []string{user.RoleStudent}
			}
			return cli.addUser(uname, email, name, pwd, roles)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	cmd.Flags().StringVar(&name, "name", "", "The user's display name (defaults to the username)")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant every role")
	cmd.Flags().BoolVar(&isTeacher, "teacher", false, "Grant the teacher role")
	cmd.Flags().BoolVar(&isStudent, "student", false, "Grant the student role")
	cmd.MarkFlagsMutuallyExclusive("admin", "teacher", "student")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password; the password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(uname, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username or email")
	return cmd
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run database migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) joinCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "joincode CLASSROOM_ID",
		Short: "Print a classroom's join code with a scannable QR code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.joinCode(args[0])
		},
	}
}
