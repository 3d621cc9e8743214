package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davomat-dev/davomat/internal/cli/client"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var username, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Request an account on a Davomat server",
		Long: `Request an account on a Davomat server.

An admin has to approve the account before it can be used. If no password is
provided the server generates one and includes it in the confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(username, password, serverAlias)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Desired username")
	cmd.Flags().StringVar(&password, "password", "", "Password (optional, generated if omitted)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")

	return cmd
}

func runRegister(username, password, serverAlias string) error {
	if username == "" {
		return fmt.Errorf("username is required (use --username)")
	}

	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	apiClient := client.New(server.URL)

	message, err := apiClient.Register(context.Background(), username, password)
	if err != nil {
		return fmt.Errorf("registration failed: %s", apiErrorMessage(err))
	}

	fmt.Println("✓ " + message)
	return nil
}
