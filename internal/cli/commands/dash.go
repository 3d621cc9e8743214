package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/davomat-dev/davomat/internal/cli/client"
)

// NewDashCmd creates the dash command
func NewDashCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Show today's attendance dashboard",
		Long: `Show today's attendance dashboard.

Runs the full session bootstrap: resolves the available credential (embedded
Mini App init data via TELEGRAM_INIT_DATA, or the stored login token),
validates it, and renders today's session and report status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDash(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")

	return cmd
}

func runDash(serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	bootstrapper, apiClient := newBootstrapper(server)
	if err := bootstrapper.Bootstrap(context.Background()); err != nil {
		return err
	}

	state := bootstrapper.State()
	if state.Authenticated && state.IsAdmin {
		showPendingAccounts(os.Stdout, apiClient, cliLogger())
	}

	return nil
}

// pendingLister is the slice of the API client the admin panel needs
type pendingLister interface {
	ListPendingUsers(ctx context.Context) ([]client.User, error)
}

// showPendingAccounts renders the admin pending-account panel. A failure here
// only costs the panel, not the dashboard.
func showPendingAccounts(w io.Writer, api pendingLister, log zerolog.Logger) {
	pending, err := api.ListPendingUsers(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load pending accounts")
		return
	}
	if len(pending) == 0 {
		return
	}

	fmt.Fprintf(w, "\n  Pending accounts (%d):\n", len(pending))
	for i := range pending {
		fmt.Fprintf(w, "    - %s\n", displayName(&pending[i]))
	}
	fmt.Fprintln(w, "  Approve with 'davomat admin approve <id>'.")
}
