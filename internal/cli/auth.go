package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"empty-jar/internal/domain"
	"empty-jar/internal/ledger"

	"github.com/spf13/cobra"
)

var errSignedOut = errors.New("not signed in, run jar login first")

// readPassword takes the flag, then JAR_PASSWORD, then one line of stdin.
func readPassword(flag string, in io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("JAR_PASSWORD"); env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required")
	}
	return line, nil
}

func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and switch this profile to your account",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			pw, err := readPassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			resp, err := a.authClient().Login(ctx, email, pw)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			id := ledger.Identity{
				AccountID:    resp.User.ID,
				Email:        resp.User.Email,
				Token:        resp.AccessToken,
				RefreshToken: resp.RefreshToken,
			}
			a.profile.Identity = &id
			if err := saveProfileFile(a.opts.Profile, a.profile); err != nil {
				return err
			}

			session, err := a.session.SignIn(ctx, id)
			if err != nil {
				return err
			}
			a.session = session
			a.printf("signed in as %s\n", id.Email)
			if n := len(session.MigrationPrompt()); n > 0 {
				a.printf("%d notes written as a guest can be added to this account: jar migrate accept (or decline)\n", n)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password, read from JAR_PASSWORD or stdin when empty")
	cmd.MarkFlagRequired("email")
	return cmd
}

func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	var req domain.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			pw, err := readPassword(req.Password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req.Password = pw
			user, err := a.authClient().Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			a.printf("account %s created, run jar login to sign in\n", user.Email)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "display name")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password, read from JAR_PASSWORD or stdin when empty")
	cmd.MarkFlagRequired("email")
	return cmd
}

func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and return to the guest profile",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id := a.session.Identity()
			if id == nil {
				a.printf("already signed out\n")
				return nil
			}
			a.profile.Identity = nil
			if err := saveProfileFile(a.opts.Profile, a.profile); err != nil {
				return err
			}
			session, err := a.session.SignOut(cmd.Context())
			if err != nil {
				return err
			}
			a.session = session
			a.printf("signed out of %s\n", id.Email)
			return nil
		}),
	}
}

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "List guest notes waiting to be added to your account",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if a.session.Identity() == nil {
				return errSignedOut
			}
			prompt := a.session.MigrationPrompt()
			if len(prompt) == 0 {
				a.printf("no guest notes to migrate\n")
				return nil
			}
			for _, n := range prompt {
				a.printNote(n, false)
			}
			return nil
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "accept",
		Short: "Copy the guest notes into your account",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if a.session.Identity() == nil {
				return errSignedOut
			}
			report, err := a.session.SyncGuestNotes(cmd.Context())
			if err != nil {
				return err
			}
			if report.AlreadyMigrated {
				a.printf("guest notes were already handled\n")
				return nil
			}
			a.printf("copied %d guest notes, %d weeks already in the account\n", report.Copied, report.Skipped)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decline",
		Short: "Keep the guest notes on this device and stop asking",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if a.session.Identity() == nil {
				return errSignedOut
			}
			if err := a.session.DismissSyncPrompt(cmd.Context()); err != nil {
				return err
			}
			a.printf("guest notes will not be offered again\n")
			return nil
		}),
	})
	return cmd
}
