package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/safefall/safefall-go/api"
)

const defaultPollInterval = 5 * time.Second

func newNotificationsCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"alerts"},
		Short:   "Follow detection notifications",
	}
	cmd.AddCommand(
		newNotificationsWatchCommand(opts),
		newNotificationsListCommand(opts),
		newNotificationsReadCommand(opts),
		newNotificationsClearCommand(opts),
	)
	return cmd
}

func newNotificationsWatchCommand(opts *GlobalOptions) *cobra.Command {
	var (
		interval time.Duration
		polls    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for new detections until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				return watchNotifications(ctx, s.api, cmd.OutOrStdout(), interval, polls)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultPollInterval, "Time between polls")
	cmd.Flags().IntVar(&polls, "polls", 0, "Stop after this many polls, 0 runs until interrupted")
	return cmd
}

// watchNotifications polls until ctx is done or polls is reached. Each poll asks only
// for events since the previous one.
func watchNotifications(ctx context.Context, svc *api.Service, out io.Writer, interval time.Duration, polls int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var since time.Time
	for n := 1; ; n++ {
		started := time.Now()
		for _, item := range svc.LatestNotifications(ctx, since) {
			printNotification(out, item)
		}
		since = started

		if polls > 0 && n >= polls {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func printNotification(out io.Writer, n api.Notification) {
	switch n.Type {
	case "fall":
		fmt.Fprintf(out, "%s FALL detected on %s (%s)\n", n.CreatedAt, n.DeviceID, n.Filename)
	case "frame":
		fmt.Fprintf(out, "%s frame captured on %s (%s)\n", n.CreatedAt, n.DeviceID, n.Filename)
	default:
		fmt.Fprintf(out, "%s %s on %s\n", n.CreatedAt, n.Type, n.DeviceID)
	}
}

func newNotificationsListCommand(opts *GlobalOptions) *cobra.Command {
	var q api.NotificationQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show past notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				items, err := s.api.NotificationHistory(ctx, q)
				if err != nil {
					return err
				}
				for _, item := range items {
					printNotification(cmd.OutOrStdout(), item)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "Page size")
	return cmd
}

func newNotificationsReadCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				return s.api.MarkNotificationRead(ctx, args[0])
			})
		},
	}
}

func newNotificationsClearCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [id]",
		Short: "Delete one notification, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				if len(args) == 1 {
					return s.api.DeleteNotification(ctx, args[0])
				}
				return s.api.ClearNotifications(ctx)
			})
		},
	}
}
