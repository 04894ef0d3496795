package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"fuelcoach-go/internal/apiclient"
	"github.com/spf13/cobra"
)

// AuthResult is printed after login and register.
type AuthResult struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
}

func (r AuthResult) String() string {
	return fmt.Sprintf("logged in as %s", r.Email)
}

type authFlags struct {
	password string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &authFlags{}
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and store the token pair",
		Long: `Log in with email and password. The password is read from --password
or, when the flag is absent, from the first line of stdin.

Mutations queued while offline are replayed after a successful login.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(rootOpts, flags, cmd, args[0], (*apiclient.Client).Login)
		},
	}
	cmd.Flags().StringVarP(&flags.password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &authFlags{}
	cmd := &cobra.Command{
		Use:           "register <email>",
		Short:         "Create an account and store the token pair",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(rootOpts, flags, cmd, args[0], (*apiclient.Client).Register)
		},
	}
	cmd.Flags().StringVarP(&flags.password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

type authFunc func(c *apiclient.Client, ctx context.Context, email, password string) (*apiclient.TokenResponse, error)

func runAuth(opts *RootOptions, flags *authFlags, cmd *cobra.Command, email string, auth authFunc) error {
	f := newFormatter(opts, cmd)
	password := flags.password
	if password == "" {
		p, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return f.Fail(WrapExitError(ExitCommandError, "read password", err))
		}
		password = p
	}
	return withRuntime(cmd, opts, f, func(ctx context.Context, rt *Runtime) error {
		resp, err := auth(rt.Client, ctx, email, password)
		if err != nil {
			return err
		}
		return f.Success(AuthResult{UserID: resp.User.ID, Email: resp.User.Email})
	})
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no password given")
	}
	return line, nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Forget the stored tokens",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				if err := rt.API.Logout(ctx); err != nil {
					return err
				}
				return f.Success("logged out")
			})
		},
	}
}

// NewMeCommand creates the me command.
func NewMeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "me",
		Short:         "Show the logged-in user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				user, err := rt.API.Me(ctx)
				if err != nil {
					return err
				}
				return f.Success(user)
			})
		},
	}
}
