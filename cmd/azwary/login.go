package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/superemem/azwaryfocus/internal/domain/session"
)

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = a.cfg.Backend.Email
			}
			if password == "" {
				password = a.cfg.Backend.Password
			}
			if email == "" || password == "" {
				return errors.New("email and password are required (--email, --password or $AZWARY_EMAIL, $AZWARY_PASSWORD)")
			}

			sess, err := a.sessions.SignIn(cmd.Context(), email, password)
			if errors.Is(err, session.ErrInvalidCredentials) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", valueOrDefault(sess.User.Email, email), sess.UserID())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (default from config)")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.sessions.SignOut(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
