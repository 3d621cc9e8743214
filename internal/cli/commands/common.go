package commands

import (
	"fmt"
	"os"

	"github.com/davomat-dev/davomat/internal/cli/auth"
	"github.com/davomat-dev/davomat/internal/cli/client"
	"github.com/davomat-dev/davomat/internal/cli/config"
	"github.com/davomat-dev/davomat/internal/cli/serverselect"
	"github.com/davomat-dev/davomat/internal/cli/session"
)

// initDataEnvVar carries the embedded Mini App credential when the CLI runs
// inside a host that injects one
const initDataEnvVar = "TELEGRAM_INIT_DATA"

// getSelectedServer loads the config and returns the selected server.
// This is common logic used by most commands.
func getSelectedServer(serverAlias string) (*config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'davomat init' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return nil, err
	}

	if server.URL == "" {
		return nil, fmt.Errorf("server URL is empty. Please edit davomat.json and add a valid URL")
	}

	return server, nil
}

// embeddedCredential returns the host-supplied Mini App credential, or empty
func embeddedCredential() string {
	return os.Getenv(initDataEnvVar)
}

// newBootstrapper wires the API client, terminal UI, and keyring token store
// for the selected server
func newBootstrapper(server *config.Server) (*session.Bootstrapper, *client.Client) {
	apiClient := client.New(server.URL)
	ui := newTerminalUI(server)
	b := session.New(apiClient, ui, auth.Default, server.URL, embeddedCredential(), cliLogger())
	return b, apiClient
}

// authenticatedClient returns an API client carrying the caller's credential,
// resolved the same way the bootstrap does: embedded credential first, then
// the persisted token.
func authenticatedClient(server *config.Server) (*client.Client, error) {
	apiClient := client.New(server.URL)

	if initData := embeddedCredential(); initData != "" {
		apiClient.SetInitData(initData)
		return apiClient, nil
	}

	token, err := auth.LoadToken(server.URL)
	if err != nil {
		return nil, err
	}
	if token == "" || token == "null" || token == "undefined" {
		return nil, fmt.Errorf("not authenticated. Please run 'davomat login' first")
	}

	apiClient.SetBearerToken(token)
	return apiClient, nil
}

// apiErrorMessage prefers the server's detail text over Go error noise
func apiErrorMessage(err error) string {
	if apiErr, ok := err.(*client.APIError); ok && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}
