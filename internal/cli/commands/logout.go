package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davomat-dev/davomat/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored credential for the selected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")

	return cmd
}

func runLogout(serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	// Deleting an absent token is fine; logout is idempotent
	if err := auth.DeleteToken(server.URL); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	fmt.Printf("✓ Logged out of %s (%s)\n", server.Alias, server.URL)
	return nil
}
