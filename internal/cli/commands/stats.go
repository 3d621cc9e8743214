package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	var from, to, serverAlias string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show attendance statistics",
		Long: `Show attendance statistics over a date range.

The range defaults to the current month.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(from, to, serverAlias)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Range start, YYYY-MM-DD (defaults to first of month)")
	cmd.Flags().StringVar(&to, "to", "", "Range end, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")

	return cmd
}

// defaultRange returns the first of the current month and today
func defaultRange(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.Format("2006-01-02"), now.Format("2006-01-02")
}

func runStats(from, to, serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	apiClient, err := authenticatedClient(server)
	if err != nil {
		return err
	}

	defaultFrom, defaultTo := defaultRange(time.Now())
	if from == "" {
		from = defaultFrom
	}
	if to == "" {
		to = defaultTo
	}

	summary, err := apiClient.MyStatistics(context.Background(), from, to)
	if err != nil {
		return fmt.Errorf("failed to load statistics: %s", apiErrorMessage(err))
	}

	fmt.Printf("Statistics %s to %s:\n\n", from, to)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Days worked\t%d\n", summary.TotalDays)
	fmt.Fprintf(w, "Online\t%d min\n", summary.TotalOnlineMinutes)
	fmt.Fprintf(w, "In office\t%d min\n", summary.TotalOfficeMinutes)
	fmt.Fprintf(w, "Late arrivals\t%d min\n", summary.TotalLateMinutes)
	fmt.Fprintf(w, "Early leaves\t%d min\n", summary.TotalEarlyLeaveMinutes)
	fmt.Fprintf(w, "Average online\t%.1f min/day\n", summary.AverageOnlineMinutes)
	fmt.Fprintf(w, "Attendance rate\t%.1f%%\n", summary.AttendanceRate)
	w.Flush()

	return nil
}
