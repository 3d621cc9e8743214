package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/davomat-dev/davomat/internal/cli/client"
	"github.com/davomat-dev/davomat/internal/cli/config"
	"github.com/davomat-dev/davomat/internal/cli/session"
)

// cliLogger returns a console logger for CLI internals. Only warnings and
// errors are shown; normal output goes through the terminal UI.
func cliLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(output).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

// terminalUI renders bootstrap screens on the terminal
type terminalUI struct {
	server *config.Server
}

func newTerminalUI(server *config.Server) *terminalUI {
	return &terminalUI{server: server}
}

func (t *terminalUI) ShowScreen(screen session.Screen) {
	switch screen {
	case session.ScreenLoading:
		fmt.Printf("Connecting to %s (%s)...\n", t.server.Alias, t.server.URL)
	case session.ScreenLogin:
		fmt.Println("Not logged in. Run 'davomat login' to authenticate.")
	case session.ScreenApp:
		fmt.Println("✓ Signed in.")
	case session.ScreenError:
		fmt.Println("Something went wrong. Check the server and try again.")
	}
}

func (t *terminalUI) ShowError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

func (t *terminalUI) ShowDashboard(dashboard *session.Dashboard) {
	fmt.Println()
	fmt.Printf("  User: %s", displayName(dashboard.User))
	if dashboard.IsAdmin {
		fmt.Print(" (admin)")
	}
	fmt.Println()

	if dashboard.User != nil && dashboard.User.Status != "active" {
		fmt.Printf("  Account status: %s\n", dashboard.User.Status)
	}

	if dashboard.Session == nil {
		fmt.Println("  Today: no work session started")
	} else {
		end := "ongoing"
		if dashboard.Session.EndTime != nil {
			end = *dashboard.Session.EndTime
		}
		fmt.Printf("  Today: %s - %s (%s)\n", dashboard.Session.StartTime, end, dashboard.Session.Status)
		fmt.Printf("  Online: %d min, in office: %d min\n",
			dashboard.Session.TotalOnlineMinutes, dashboard.Session.TotalOfficeMinutes)
		if dashboard.Session.LateArrivalMinutes > 0 {
			fmt.Printf("  Late arrival: %d min\n", dashboard.Session.LateArrivalMinutes)
		}
	}

	if dashboard.ReportSubmitted {
		fmt.Println("  Daily report: submitted")
	} else {
		fmt.Println("  Daily report: not submitted")
	}
}

func displayName(user *client.User) string {
	if user == nil {
		return "unknown"
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" {
		name = user.Username
	}
	return name
}
