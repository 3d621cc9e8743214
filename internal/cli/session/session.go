// Package session implements the dual-mode authentication bootstrap: it
// resolves which identity the client holds (embedded Mini App credential,
// persisted login token, or none), validates it, and drives the UI into the
// authenticated app or the login screen.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/davomat-dev/davomat/internal/cli/auth"
	"github.com/davomat-dev/davomat/internal/cli/client"
)

// Mode is the identity mode resolved at startup. It is resolved exactly once
// per process; switching modes requires a restart.
type Mode int

const (
	ModeUnauthenticated Mode = iota
	ModeToken
	ModeEmbedded
)

func (m Mode) String() string {
	switch m {
	case ModeEmbedded:
		return "embedded"
	case ModeToken:
		return "token"
	default:
		return "unauthenticated"
	}
}

// Screen identifies which top-level view the UI shows
type Screen string

const (
	ScreenLoading Screen = "loading"
	ScreenLogin   Screen = "login"
	ScreenApp     Screen = "app"
	ScreenError   Screen = "error"
)

// State is the single authoritative session value. It is owned by the
// Bootstrapper; rendering code reads it, only the bootstrap, login and
// logout flows write it.
type State struct {
	Mode          Mode
	Screen        Screen
	Authenticated bool
	User          *client.User
	IsAdmin       bool
}

// Dashboard is the data loaded for the main screen after the shell is shown
type Dashboard struct {
	User            *client.User
	IsAdmin         bool
	Session         *client.WorkSession
	ReportSubmitted bool
}

// UI receives screen transitions and data from the bootstrapper
type UI interface {
	ShowScreen(screen Screen)
	ShowError(message string)
	ShowDashboard(dashboard *Dashboard)
}

// API is the subset of the HTTP client the bootstrapper drives
type API interface {
	SetInitData(initData string)
	SetBearerToken(token string)
	AuthCheck(ctx context.Context) (*client.AuthCheckResponse, error)
	Login(ctx context.Context, username, password string) (*client.LoginResponse, error)
	CurrentUser(ctx context.Context) (*client.User, error)
	IsAdmin(ctx context.Context) (bool, error)
	TodaySession(ctx context.Context) (*client.WorkSession, error)
	ReportStatus(ctx context.Context) (bool, error)
}

// Bootstrapper owns the session state and the authentication flow
type Bootstrapper struct {
	api       API
	ui        UI
	store     auth.TokenStore
	serverURL string
	logger    zerolog.Logger

	// Captured once at startup; empty when the host supplies no credential
	embeddedCredential string

	mu    sync.Mutex
	state State
}

// New creates a bootstrapper. embeddedCredential is the Mini App init data
// supplied by the host environment, or empty outside an embedded context.
func New(api API, ui UI, store auth.TokenStore, serverURL, embeddedCredential string, logger zerolog.Logger) *Bootstrapper {
	return &Bootstrapper{
		api:                api,
		ui:                 ui,
		store:              store,
		serverURL:          serverURL,
		embeddedCredential: embeddedCredential,
		logger:             logger,
		state:              State{Screen: ScreenLoading},
	}
}

// State returns a copy of the current session state
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bootstrapper) setState(mutate func(*State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	mutate(&b.state)
}

// isPlaceholderToken reports whether a stored value is one of the literal
// strings older clients wrote when they meant "no token"
func isPlaceholderToken(token string) bool {
	return token == "null" || token == "undefined"
}

// ResolveMode determines the identity mode from the environment, without
// network calls. Precedence: embedded credential, then persisted token, then
// unauthenticated. Placeholder token values count as absent, as does a token
// store that cannot be read.
func (b *Bootstrapper) ResolveMode() (Mode, string) {
	if b.embeddedCredential != "" {
		return ModeEmbedded, ""
	}

	token, err := b.store.LoadToken(b.serverURL)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to read token store")
		return ModeUnauthenticated, ""
	}
	if token == "" || isPlaceholderToken(token) {
		return ModeUnauthenticated, ""
	}

	return ModeToken, token
}

// Bootstrap resolves the identity mode and drives the UI to the login screen
// or the authenticated app. It returns an error only for fail-fast phase
// failures; a rejected or unverifiable token is handled by falling back to
// the login screen and is not an error.
func (b *Bootstrapper) Bootstrap(ctx context.Context) error {
	b.ui.ShowScreen(ScreenLoading)

	mode, token := b.ResolveMode()
	b.setState(func(s *State) { s.Mode = mode })
	b.logger.Debug().Str("mode", mode.String()).Msg("Identity mode resolved")

	switch mode {
	case ModeEmbedded:
		// The embedded credential is trusted without a pre-check; the
		// server validates it on every request anyway
		b.api.SetInitData(b.embeddedCredential)
		return b.loadAuthenticatedApp(ctx, nil)

	case ModeToken:
		b.api.SetBearerToken(token)

		// Bounded check; a timeout or error is treated exactly like an
		// explicit rejection (fail closed)
		resp, err := b.api.AuthCheck(ctx)
		if err != nil || !resp.Authenticated {
			if err != nil {
				b.logger.Warn().Err(err).Msg("Token validation failed")
			}
			b.discardToken()
			b.showLogin("")
			return nil
		}

		return b.loadAuthenticatedApp(ctx, resp.User)

	default:
		b.showLogin("")
		return nil
	}
}

// loadAuthenticatedApp runs the two-phase app load. The fail-fast phase
// resolves profile and role in that order; any failure there aborts per the
// current mode. The screen transition happens before the fail-soft dashboard
// loads so a broken dashboard endpoint cannot keep the user out.
func (b *Bootstrapper) loadAuthenticatedApp(ctx context.Context, knownUser *client.User) error {
	user := knownUser
	if user == nil {
		fetched, err := b.api.CurrentUser(ctx)
		if err != nil {
			return b.failFast(err)
		}
		user = fetched
	}

	isAdmin, err := b.api.IsAdmin(ctx)
	if err != nil {
		return b.failFast(err)
	}

	b.setState(func(s *State) {
		s.Authenticated = true
		s.User = user
		s.IsAdmin = isAdmin
		s.Screen = ScreenApp
	})
	b.ui.ShowScreen(ScreenApp)

	// Fail-soft phase: dashboard data errors are logged, never blocking
	dashboard := &Dashboard{User: user, IsAdmin: isAdmin}

	if session, err := b.api.TodaySession(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to load today's session")
	} else {
		dashboard.Session = session
	}

	if submitted, err := b.api.ReportStatus(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to load report status")
	} else {
		dashboard.ReportSubmitted = submitted
	}

	b.ui.ShowDashboard(dashboard)

	return nil
}

// failFast handles a profile or role fetch failure. In embedded mode there
// is no credential to discard and nothing to retry, so the user gets a
// blocking error screen. In token mode the credential is suspect: discard it
// and fall back to login with the error inline.
func (b *Bootstrapper) failFast(err error) error {
	b.logger.Error().Err(err).Msg("Failed to load authenticated app")

	if b.State().Mode == ModeEmbedded {
		b.setState(func(s *State) { s.Screen = ScreenError })
		b.ui.ShowScreen(ScreenError)
		b.ui.ShowError(errorMessage(err))
		return err
	}

	b.discardToken()
	b.showLogin(errorMessage(err))
	return err
}

// Login authenticates with the server, persists the returned token, and
// enters the app. The profile from the login response is reused instead of
// re-fetched.
func (b *Bootstrapper) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		b.ui.ShowError("Username and password are required")
		return nil
	}

	resp, err := b.api.Login(ctx, username, password)
	if err != nil {
		b.ui.ShowError(errorMessage(err))
		return nil
	}

	if err := b.store.SaveToken(b.serverURL, resp.Token); err != nil {
		// The session still works for this run; only persistence is lost
		b.logger.Warn().Err(err).Msg("Failed to persist token")
	}

	b.api.SetBearerToken(resp.Token)
	b.setState(func(s *State) { s.Mode = ModeToken })

	return b.loadAuthenticatedApp(ctx, resp.User)
}

// Logout discards the persisted token, resets the session state, and shows
// the login screen. Calling it when already logged out is a no-op apart from
// the screen transition.
func (b *Bootstrapper) Logout() {
	b.discardToken()
	b.setState(func(s *State) {
		*s = State{}
	})
	b.showLogin("")
}

func (b *Bootstrapper) discardToken() {
	if err := b.store.DeleteToken(b.serverURL); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to delete token")
	}
	b.api.SetBearerToken("")
}

func (b *Bootstrapper) showLogin(errMsg string) {
	b.setState(func(s *State) {
		s.Authenticated = false
		s.User = nil
		s.IsAdmin = false
		s.Screen = ScreenLogin
	})
	b.ui.ShowScreen(ScreenLogin)
	if errMsg != "" {
		b.ui.ShowError(errMsg)
	}
}

// errorMessage prefers the server's detail text over Go error noise
func errorMessage(err error) string {
	if apiErr, ok := err.(*client.APIError); ok && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if err != nil {
		return err.Error()
	}
	return "Something went wrong"
}
