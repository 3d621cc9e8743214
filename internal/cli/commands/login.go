package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Davomat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(username, password, serverAlias)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set DAVOMAT_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set DAVOMAT_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from davomat.json")

	return cmd
}

func runLogin(username, password, serverAlias string) error {
	// Check for environment variables (useful for CI/CD)
	if username == "" {
		username = os.Getenv("DAVOMAT_USERNAME")
	}
	if password == "" {
		password = os.Getenv("DAVOMAT_PASSWORD")
	}

	if username == "" {
		return fmt.Errorf("username is required (use --username flag or DAVOMAT_USERNAME env var)")
	}

	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		// Check if stdin is a terminal (not piped)
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or DAVOMAT_PASSWORD env var)")
		}
	}

	fmt.Printf("Logging in to %s (%s)...\n", server.Alias, server.URL)

	bootstrapper, _ := newBootstrapper(server)
	if err := bootstrapper.Login(context.Background(), username, password); err != nil {
		return fmt.Errorf("login failed: %s", apiErrorMessage(err))
	}

	if !bootstrapper.State().Authenticated {
		return fmt.Errorf("login failed")
	}

	return nil
}
