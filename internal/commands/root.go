// Package commands implements the safefall command line client.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &GlobalOptions{Version: version}

	root := &cobra.Command{
		Use:   "safefall",
		Short: "Command line client for the SafeFall dashboard backend",
		Long: `safefall talks to the SafeFall fall-detection backend: sign in, review
incident videos, watch for new detections and inspect the dashboard counters.

Configuration is read from config.yaml and SAFEFALL_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "config.yaml", "Configuration file")
	flags.StringVar(&opts.TokenFile, "token-file", "", "Where the session tokens are kept")
	flags.StringVar(&opts.BaseURL, "base-url", "", "Backend base URL, overrides api.baseurl")
	flags.BoolVarP(&opts.Debug, "debug", "d", false, "Trace every request on stderr")

	root.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newVideosCommand(opts),
		newStatsCommand(opts),
		newNotificationsCommand(opts),
		newSettingsCommand(opts),
		newCacheCommand(opts),
		newHealthCommand(opts),
		newVersionCommand(version),
	)
	return root
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "safefall version %s\n", version)
			fmt.Fprintf(out, "Built with %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
