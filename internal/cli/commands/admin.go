package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/davomat-dev/davomat/internal/cli/client"
)

// NewAdminCmd creates the admin command group
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users and reports (admin only)",
	}

	cmd.AddCommand(newAdminUsersCmd())
	cmd.AddCommand(newAdminPendingCmd())
	cmd.AddCommand(newAdminApproveCmd())
	cmd.AddCommand(newAdminBlockCmd())
	cmd.AddCommand(newAdminReportsCmd())
	cmd.AddCommand(newAdminStatsCmd())
	cmd.AddCommand(newAdminSettingsCmd())

	return cmd
}

func adminClient(serverAlias string) (*client.Client, error) {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return nil, err
	}
	return authenticatedClient(server)
}

func printUserTable(users []client.User) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUSERNAME\tTELEGRAM\tSTATUS\tADMIN")
	fmt.Fprintln(w, "────\t────────\t────────\t──────\t─────")

	for i := range users {
		user := &users[i]
		telegram := "-"
		if user.TelegramID != nil {
			telegram = fmt.Sprintf("%d", *user.TelegramID)
		}
		admin := ""
		if user.IsAdmin {
			admin = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			displayName(user), user.Username, telegram, user.Status, admin)
	}

	w.Flush()
}

func newAdminUsersCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := adminClient(serverAlias)
			if err != nil {
				return err
			}

			users, err := apiClient.ListUsers(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list users: %s", apiErrorMessage(err))
			}

			printUserTable(users)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")
	return cmd
}

func newAdminPendingCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List accounts waiting for approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := adminClient(serverAlias)
			if err != nil {
				return err
			}

			users, err := apiClient.ListPendingUsers(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list pending users: %s", apiErrorMessage(err))
			}

			if len(users) == 0 {
				fmt.Println("No pending accounts.")
				return nil
			}

			printUserTable(users)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")
	return cmd
}

func newAdminApproveCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "approve <telegram-id-or-user-id>",
		Short: "Approve a pending account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := adminClient(serverAlias)
			if err != nil {
				return err
			}

			if err := apiClient.UpdateUserStatus(context.Background(), args[0], "active"); err != nil {
				return fmt.Errorf("failed to approve user: %s", apiErrorMessage(err))
			}

			fmt.Printf("✓ Approved %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")
	return cmd
}

func newAdminBlockCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "block <telegram-id-or-user-id>",
		Short: "Block an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := adminClient(serverAlias)
			if err != nil {
				return err
			}

			if err := apiClient.UpdateUserStatus(context.Background(), args[0], "blocked"); err != nil {
				return fmt.Errorf("failed to block user: %s", apiErrorMessage(err))
			}

			fmt.Printf("✓ Blocked %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")
	return cmd
}

func newAdminReportsCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "reports [date]",
		Short: "Show every user's report for a date (defaults to today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().Format("2006-01-02")
			if len(args) > 0 {
				date = args[0]
			}

			apiClient, err := adminClient(serverAlias)
			if err != nil {
				return err
			}

			reports, err := apiClient.AllReports(context.Background(), date)
			if err != nil {
				return fmt.Errorf("failed to load reports: %s", apiErrorMessage(err))
			}

			if len(reports) == 0 {
				fmt.Printf("No reports for %s.\n", date)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USER\tREPORT")
			fmt.Fprintln(w, "────\t──────")
			for _, report := range reports {
				fmt.Fprintf(w, "%s\t%s\n", report.UserID, report.Content)
			}
			w.Flush()

			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")
	return cmd
}

func newAdminStatsCmd() *cobra.Command {
	var from, to, serverAlias string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-user statistics over a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := adminClient(serverAlias)
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

			summaries, err := apiClient.AllStatistics(context.Background(), from, to)
			if err != nil {
				return fmt.Errorf("failed to load statistics: %s", apiErrorMessage(err))
			}

			fmt.Printf("Statistics %s to %s:\n\n", from, to)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USER\tDAYS\tONLINE\tOFFICE\tLATE\tRATE")
			fmt.Fprintln(w, "────\t────\t──────\t──────\t────\t────")
			for i := range summaries {
				s := &summaries[i]
				fmt.Fprintf(w, "%s\t%d\t%d min\t%d min\t%d min\t%.1f%%\n",
					displayName(&s.User),
					s.Statistics.TotalDays,
					s.Statistics.TotalOnlineMinutes,
					s.Statistics.TotalOfficeMinutes,
					s.Statistics.TotalLateMinutes,
					s.Statistics.AttendanceRate,
				)
			}
			w.Flush()

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Range start, YYYY-MM-DD (defaults to first of month)")
	cmd.Flags().StringVar(&to, "to", "", "Range end, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")
	return cmd
}

func printSettings(settings *client.Settings) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Work hours\t%s – %s\n", settings.WorkStart, settings.WorkEnd)
	fmt.Fprintf(w, "Lunch break\t%s – %s\n", settings.LunchStart, settings.LunchEnd)
	fmt.Fprintf(w, "Office\t%.6f, %.6f (radius %.0f m)\n",
		settings.Geofence.CenterLat, settings.Geofence.CenterLng, settings.Geofence.RadiusMeters)
	fmt.Fprintf(w, "Reminder schedule\t%s\n", settings.ReminderSchedule)
	w.Flush()
}

func newAdminSettingsCmd() *cobra.Command {
	var workStart, workEnd, lunchStart, lunchEnd, schedule, serverAlias string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change server settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := adminClient(serverAlias)
			if err != nil {
				return err
			}

			update := &client.SettingsUpdate{}
			changed := false
			for flag, target := range map[string]**string{
				"work-start":  &update.WorkStart,
				"work-end":    &update.WorkEnd,
				"lunch-start": &update.LunchStart,
				"lunch-end":   &update.LunchEnd,
				"schedule":    &update.ReminderSchedule,
			} {
				if cmd.Flags().Changed(flag) {
					value, _ := cmd.Flags().GetString(flag)
					*target = &value
					changed = true
				}
			}

			if !changed {
				settings, err := apiClient.Settings(context.Background())
				if err != nil {
					return fmt.Errorf("failed to load settings: %s", apiErrorMessage(err))
				}
				printSettings(settings)
				return nil
			}

			settings, err := apiClient.UpdateSettings(context.Background(), update)
			if err != nil {
				return fmt.Errorf("failed to update settings: %s", apiErrorMessage(err))
			}

			fmt.Println("✓ Settings updated")
			printSettings(settings)
			return nil
		},
	}

	cmd.Flags().StringVar(&workStart, "work-start", "", "Work window start, HH:MM")
	cmd.Flags().StringVar(&workEnd, "work-end", "", "Work window end, HH:MM")
	cmd.Flags().StringVar(&lunchStart, "lunch-start", "", "Lunch break start, HH:MM")
	cmd.Flags().StringVar(&lunchEnd, "lunch-end", "", "Lunch break end, HH:MM")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Reminder cron schedule, e.g. '0 17 * * 1-5'")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")
	return cmd
}
