package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safefall/safefall-go/api"
)

func newSettingsCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the general settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				settings, err := s.api.Settings(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), settings)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set <json>",
		Short:   "Replace the general settings",
		Example: `  safefall settings set '{"sensitivity":0.8}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var settings api.Object
			if err := json.Unmarshal([]byte(args[0]), &settings); err != nil {
				return fmt.Errorf("settings must be a JSON object: %w", err)
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				updated, err := s.api.UpdateSettings(ctx, settings)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), updated)
			})
		},
	})
	return cmd
}

func newCacheCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear [pattern]",
		Short: "Drop cached responses, all of them or those whose key contains pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				if len(args) == 1 {
					return s.api.ClearCacheByPattern(ctx, args[0])
				}
				return s.api.ClearAllCache(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache backend statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(_ context.Context, s *session) error {
				if s.cache == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "cache disabled")
					return nil
				}
				return printJSON(cmd.OutOrStdout(), s.cache.Stats())
			})
		},
	})
	return cmd
}

func newHealthCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				body, err := s.api.HealthCheck(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.client.BaseURL(), body)
				return nil
			})
		},
	}
}
