package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/safefall/safefall-go/api"
)

func newVideosCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "videos",
		Aliases: []string{"video"},
		Short:   "Review incident videos",
	}
	cmd.AddCommand(
		newVideosListCommand(opts),
		newVideosCheckCommand(opts),
		newVideosDeleteCommand(opts),
		newVideosDownloadCommand(opts),
		newVideosUploadCommand(opts),
	)
	return cmd
}

func newVideosListCommand(opts *GlobalOptions) *cobra.Command {
	var (
		q         api.VideoQuery
		checked   bool
		unchecked bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incident videos",
		Example: `  safefall videos list --unchecked
  safefall videos list --search kitchen --from 2024-03-01 --to 2024-03-31`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if checked && unchecked {
				return fmt.Errorf("--checked and --unchecked are mutually exclusive")
			}
			switch {
			case checked:
				q.IsChecked = &checked
			case unchecked:
				v := false
				q.IsChecked = &v
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				list, err := s.api.ListVideos(ctx, q)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FILENAME\tCREATED\tCHECKED")
				for _, v := range list.Data {
					fmt.Fprintf(w, "%s\t%s\t%t\n", v.Filename, v.CreatedAt, v.IsChecked)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				p := list.Pagination
				fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d total\n", p.Page, p.TotalPages, p.Total)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&q.Page, "page", 0, "Page number")
	f.IntVar(&q.Limit, "limit", 0, "Page size")
	f.StringVar(&q.Search, "search", "", "Filename keyword")
	f.StringVar(&q.SortBy, "sort", "", "Sort field: createdAt, filename or isChecked")
	f.StringVar(&q.SortOrder, "order", "", "Sort order: asc or desc")
	f.StringVar(&q.StartDate, "from", "", "First day, YYYY-MM-DD")
	f.StringVar(&q.EndDate, "to", "", "Last day, YYYY-MM-DD")
	f.BoolVar(&checked, "checked", false, "Only reviewed videos")
	f.BoolVar(&unchecked, "unchecked", false, "Only videos awaiting review")
	return cmd
}

func newVideosCheckCommand(opts *GlobalOptions) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "check <filename>",
		Short: "Mark a video as reviewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				if err := s.api.UpdateVideoStatus(ctx, args[0], !undo); err != nil {
					return err
				}
				state := "checked"
				if undo {
					state = "unchecked"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s marked %s\n", args[0], state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the video as not reviewed")
	return cmd
}

func newVideosDeleteCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "Delete a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				if err := s.api.DeleteVideo(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", args[0])
				return nil
			})
		},
	}
}

func newVideosDownloadCommand(opts *GlobalOptions) *cobra.Command {
	var (
		output    string
		thumbnail bool
	)

	cmd := &cobra.Command{
		Use:   "download <filename>",
		Short: "Download a video or its thumbnail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				fetch := s.api.DownloadVideo
				if thumbnail {
					fetch = s.api.VideoThumbnail
				}
				dl, err := fetch(ctx, args[0])
				if err != nil {
					return err
				}
				path := output
				if path == "" {
					path = filepath.Base(args[0])
				}
				if err := os.WriteFile(path, dl.Data, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s saved (%d bytes, %s)\n", path, len(dl.Data), dl.ContentType)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file, defaults to the video name")
	cmd.Flags().BoolVar(&thumbnail, "thumbnail", false, "Fetch the preview image instead")
	return cmd
}

func newVideosUploadCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a recorded video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				if _, err := s.api.UploadVideo(ctx, filepath.Base(args[0]), content); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s uploaded (%d bytes)\n", filepath.Base(args[0]), len(content))
				return nil
			})
		},
	}
}
