package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/safefall/safefall-go/api"
)

func newLoginCommand(opts *GlobalOptions) *cobra.Command {
	var creds api.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session tokens",
		Example: `  safefall login -u admin -p secret
  echo secret | safefall login -u admin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				creds.Password = strings.TrimRight(line, "\r\n")
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				resp, err := s.api.Login(ctx, creds)
				if err != nil {
					return err
				}
				name := creds.Username
				if resp.User != nil && resp.User.Name != "" {
					name = resp.User.Name
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Account name")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password, read from stdin when omitted")
	return cmd
}

func newLogoutCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				if err := s.api.Logout(ctx); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Server logout failed, local session cleared anyway")
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}
