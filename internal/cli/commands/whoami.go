package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")

	return cmd
}

func runWhoami(serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	apiClient, err := authenticatedClient(server)
	if err != nil {
		return err
	}

	ctx := context.Background()

	user, err := apiClient.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %s", apiErrorMessage(err))
	}

	isAdmin, err := apiClient.IsAdmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch role: %s", apiErrorMessage(err))
	}

	fmt.Printf("Name:     %s\n", displayName(user))
	if user.Username != "" {
		fmt.Printf("Username: %s\n", user.Username)
	}
	if user.TelegramID != nil {
		fmt.Printf("Telegram: %d\n", *user.TelegramID)
	}
	fmt.Printf("Status:   %s\n", user.Status)
	if isAdmin {
		fmt.Println("Role:     admin")
	}

	return nil
}
