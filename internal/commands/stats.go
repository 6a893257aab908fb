package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/safefall/safefall-go/api"
	"github.com/safefall/safefall-go/dashboard"
)

type statsOptions struct {
	year   int
	days   int
	daily  bool
	remote bool
	period string
}

func newStatsCommand(opts *GlobalOptions) *cobra.Command {
	so := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review progress and incident counts",
		Long: `Loads every incident video and prints the review progress, the number of
recent incidents and a per-month table. With --remote the backend's own
counters and chart series are printed instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, s *session) error {
				if so.remote {
					return printRemoteStats(ctx, cmd, s, so)
				}
				return printLocalStats(ctx, cmd, s, so)
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&so.year, "year", time.Now().Year(), "Year of the monthly table")
	f.IntVar(&so.days, "days", dashboard.DefaultRecentDays, "Window of the recent incident count")
	f.BoolVar(&so.daily, "daily", false, "Print per-day totals instead of the monthly table")
	f.BoolVar(&so.remote, "remote", false, "Print the backend's dashboard counters")
	f.StringVar(&so.period, "period", "", "Chart period with --remote: day, week, month or year")
	return cmd
}

func printLocalStats(ctx context.Context, cmd *cobra.Command, s *session, so *statsOptions) error {
	store := dashboard.NewStore(s.api, s.log, dashboard.WithPageSize(s.cfg.Pagination.Max))
	if err := store.Refresh(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	st := store.Stats()
	fmt.Fprintf(out, "total %d, checked %d, unchecked %d, check rate %d%%\n", st.Total, st.Checked, st.Unchecked, st.CheckRate)
	fmt.Fprintf(out, "last %d days: %d\n", so.days, store.RecentCount(so.days, time.Now()))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if so.daily {
		fmt.Fprintln(w, "DATE\tTOTAL\tCHECKED\tUNCHECKED")
		for _, p := range store.DailySeries() {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", p.Date, p.Total, p.Checked, p.Unchecked)
		}
		return w.Flush()
	}
	fmt.Fprintf(w, "MONTH (%d)\tTOTAL\tCHECKED\tUNCHECKED\n", so.year)
	for _, row := range store.MonthlyTable(so.year) {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", row.Label, row.Total, row.Checked, row.Unchecked)
	}
	return w.Flush()
}

func printRemoteStats(ctx context.Context, cmd *cobra.Command, s *session, so *statsOptions) error {
	stats, err := s.api.DashboardStats(ctx)
	if err != nil {
		return err
	}
	chart, err := s.api.ChartData(ctx, api.ChartQuery{Period: so.period})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{"stats": stats, "chart": chart})
}
