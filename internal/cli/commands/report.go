package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var date, serverAlias string
	var history bool

	cmd := &cobra.Command{
		Use:   "report [content...]",
		Short: "Submit or show the daily work report",
		Long: `Submit or show the daily work report.

With content arguments, submits (or overwrites) the report. Without
arguments, shows today's report. Resubmitting replaces the previous content.

Examples:
  $ davomat report Fixed the billing export and reviewed two PRs
  $ davomat report --date 2026-08-28 Backfilled missing invoices
  $ davomat report             # show today's report
  $ davomat report --history   # list past reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(strings.Join(args, " "), date, history, serverAlias)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Report date, YYYY-MM-DD (defaults to today)")
	cmd.Flags().BoolVar(&history, "history", false, "List past reports")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")

	return cmd
}

func runReport(content, date string, history bool, serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	apiClient, err := authenticatedClient(server)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if history {
		reports, err := apiClient.ReportHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to load report history: %s", apiErrorMessage(err))
		}

		if len(reports) == 0 {
			fmt.Println("No reports submitted yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tREPORT")
		fmt.Fprintln(w, "────\t──────")
		for _, report := range reports {
			fmt.Fprintf(w, "%s\t%s\n", report.Date, report.Content)
		}
		w.Flush()

		return nil
	}

	if content != "" {
		report, err := apiClient.SubmitReport(ctx, content, date)
		if err != nil {
			return fmt.Errorf("failed to submit report: %s", apiErrorMessage(err))
		}

		fmt.Printf("✓ Report submitted for %s\n", report.Date)
		return nil
	}

	report, submitted, err := apiClient.TodayReport(ctx)
	if err != nil {
		return fmt.Errorf("failed to load today's report: %s", apiErrorMessage(err))
	}

	if !submitted || report == nil {
		fmt.Println("No report submitted today.")
		fmt.Println("\nSubmit one with: davomat report <what you worked on>")
		return nil
	}

	fmt.Printf("Report for %s:\n\n  %s\n", report.Date, report.Content)
	return nil
}
