package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davomat-dev/davomat/internal/cli/client"
)

const testServerURL = "https://attendance.example.com"

type mockStore struct {
	tokens  map[string]string
	loadErr error
}

func newMockStore() *mockStore {
	return &mockStore{tokens: make(map[string]string)}
}

func (m *mockStore) SaveToken(serverURL, token string) error {
	m.tokens[serverURL] = token
	return nil
}

func (m *mockStore) LoadToken(serverURL string) (string, error) {
	if m.loadErr != nil {
		return "", m.loadErr
	}
	return m.tokens[serverURL], nil
}

func (m *mockStore) DeleteToken(serverURL string) error {
	delete(m.tokens, serverURL)
	return nil
}

type fakeUI struct {
	screens    []Screen
	errors     []string
	dashboards []*Dashboard
}

func (f *fakeUI) ShowScreen(screen Screen)          { f.screens = append(f.screens, screen) }
func (f *fakeUI) ShowError(message string)          { f.errors = append(f.errors, message) }
func (f *fakeUI) ShowDashboard(dashboard *Dashboard) {
	f.dashboards = append(f.dashboards, dashboard)
}

func (f *fakeUI) lastScreen() Screen {
	if len(f.screens) == 0 {
		return ""
	}
	return f.screens[len(f.screens)-1]
}

type fakeAPI struct {
	initData string
	token    string
	calls    []string

	authCheckResp *client.AuthCheckResponse
	authCheckErr  error
	loginResp     *client.LoginResponse
	loginErr      error
	user          *client.User
	userErr       error
	isAdmin       bool
	isAdminErr    error
	session       *client.WorkSession
	sessionErr    error
	submitted     bool
	submittedErr  error
}

func (f *fakeAPI) SetInitData(initData string) { f.initData = initData }
func (f *fakeAPI) SetBearerToken(token string) { f.token = token }

func (f *fakeAPI) AuthCheck(ctx context.Context) (*client.AuthCheckResponse, error) {
	f.calls = append(f.calls, "auth_check")
	return f.authCheckResp, f.authCheckErr
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (*client.LoginResponse, error) {
	f.calls = append(f.calls, "login")
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*client.User, error) {
	f.calls = append(f.calls, "current_user")
	return f.user, f.userErr
}

func (f *fakeAPI) IsAdmin(ctx context.Context) (bool, error) {
	f.calls = append(f.calls, "is_admin")
	return f.isAdmin, f.isAdminErr
}

func (f *fakeAPI) TodaySession(ctx context.Context) (*client.WorkSession, error) {
	f.calls = append(f.calls, "today_session")
	return f.session, f.sessionErr
}

func (f *fakeAPI) ReportStatus(ctx context.Context) (bool, error) {
	f.calls = append(f.calls, "report_status")
	return f.submitted, f.submittedErr
}

func newBootstrapper(api *fakeAPI, ui *fakeUI, store *mockStore, embedded string) *Bootstrapper {
	return New(api, ui, store, testServerURL, embedded, zerolog.Nop())
}

func TestResolveModeEmbeddedWins(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "stored-token"

	b := newBootstrapper(&fakeAPI{}, &fakeUI{}, store, "query_id=AAE1&hash=abc")

	mode, token := b.ResolveMode()
	assert.Equal(t, ModeEmbedded, mode)
	assert.Empty(t, token)
}

func TestResolveModePersistedToken(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "stored-token"

	b := newBootstrapper(&fakeAPI{}, &fakeUI{}, store, "")

	mode, token := b.ResolveMode()
	assert.Equal(t, ModeToken, mode)
	assert.Equal(t, "stored-token", token)
}

func TestResolveModeUnauthenticated(t *testing.T) {
	t.Run("empty environment", func(t *testing.T) {
		b := newBootstrapper(&fakeAPI{}, &fakeUI{}, newMockStore(), "")
		mode, _ := b.ResolveMode()
		assert.Equal(t, ModeUnauthenticated, mode)
	})

	t.Run("placeholder literals count as absent", func(t *testing.T) {
		for _, placeholder := range []string{"null", "undefined"} {
			store := newMockStore()
			store.tokens[testServerURL] = placeholder

			b := newBootstrapper(&fakeAPI{}, &fakeUI{}, store, "")
			mode, _ := b.ResolveMode()
			assert.Equal(t, ModeUnauthenticated, mode, placeholder)
		}
	})

	t.Run("unreadable store counts as absent", func(t *testing.T) {
		store := newMockStore()
		store.loadErr = fmt.Errorf("keyring locked")

		b := newBootstrapper(&fakeAPI{}, &fakeUI{}, store, "")
		mode, _ := b.ResolveMode()
		assert.Equal(t, ModeUnauthenticated, mode)
	})
}

func TestBootstrapRejectedTokenClearsIt(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "stale-token"

	api := &fakeAPI{authCheckResp: &client.AuthCheckResponse{Authenticated: false}}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "")
	require.NoError(t, b.Bootstrap(context.Background()))

	assert.Empty(t, store.tokens[testServerURL])
	assert.Equal(t, ScreenLogin, ui.lastScreen())
	assert.Empty(t, api.token)
	assert.False(t, b.State().Authenticated)
}

func TestBootstrapAuthCheckTimeout(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "stale-token"

	// A timed-out check behaves exactly like an explicit rejection
	api := &fakeAPI{authCheckErr: context.DeadlineExceeded}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "")
	require.NoError(t, b.Bootstrap(context.Background()))

	assert.Empty(t, store.tokens[testServerURL])
	assert.Equal(t, ScreenLogin, ui.lastScreen())
}

func TestBootstrapValidToken(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "good-token"

	user := &client.User{ID: "u1", Username: "alice", Status: "active"}
	api := &fakeAPI{
		authCheckResp: &client.AuthCheckResponse{Authenticated: true, User: user},
		isAdmin:       false,
	}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "")
	require.NoError(t, b.Bootstrap(context.Background()))

	assert.Equal(t, ScreenApp, ui.lastScreen())
	assert.True(t, b.State().Authenticated)
	assert.Equal(t, "alice", b.State().User.Username)

	// The profile from the auth check is reused, not re-fetched
	assert.NotContains(t, api.calls, "current_user")
	// The token survives a successful bootstrap
	assert.Equal(t, "good-token", store.tokens[testServerURL])
}

func TestEmbeddedModeSkipsAuthCheck(t *testing.T) {
	user := &client.User{ID: "u2", FirstName: "Tele"}
	api := &fakeAPI{user: user, isAdmin: true}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, newMockStore(), "query_id=AAE1&hash=abc")
	require.NoError(t, b.Bootstrap(context.Background()))

	assert.NotContains(t, api.calls, "auth_check")
	assert.Equal(t, "query_id=AAE1&hash=abc", api.initData)
	assert.Equal(t, ScreenApp, ui.lastScreen())
	assert.True(t, b.State().IsAdmin)
}

func TestEmbeddedProfileFetchFailure(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "unrelated-token"

	api := &fakeAPI{userErr: &client.APIError{StatusCode: 500, Detail: "Internal server error"}}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "query_id=AAE1&hash=abc")
	err := b.Bootstrap(context.Background())

	require.Error(t, err)
	assert.Equal(t, ScreenError, ui.lastScreen())
	assert.Contains(t, ui.errors, "Internal server error")
	// The stored token is irrelevant in embedded mode and left untouched
	assert.Equal(t, "unrelated-token", store.tokens[testServerURL])
}

func TestTokenModeProfileFetchFailureFallsBackToLogin(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "good-token"

	api := &fakeAPI{
		authCheckResp: &client.AuthCheckResponse{Authenticated: true},
		userErr:       &client.APIError{StatusCode: 502, Detail: "Bad gateway"},
	}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "")
	err := b.Bootstrap(context.Background())

	require.Error(t, err)
	assert.Equal(t, ScreenLogin, ui.lastScreen())
	assert.Contains(t, ui.errors, "Bad gateway")
	assert.Empty(t, store.tokens[testServerURL])
}

func TestRoleFetchOrderedAfterProfile(t *testing.T) {
	api := &fakeAPI{user: &client.User{ID: "u3"}}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, newMockStore(), "query_id=AAE1&hash=abc")
	require.NoError(t, b.Bootstrap(context.Background()))

	profileIdx, roleIdx := -1, -1
	for i, call := range api.calls {
		switch call {
		case "current_user":
			profileIdx = i
		case "is_admin":
			roleIdx = i
		}
	}
	require.NotEqual(t, -1, profileIdx)
	require.NotEqual(t, -1, roleIdx)
	assert.Less(t, profileIdx, roleIdx)
}

func TestLoginPersistsTokenAndEntersApp(t *testing.T) {
	store := newMockStore()
	user := &client.User{ID: "u4", Username: "alice", Status: "active"}
	api := &fakeAPI{
		loginResp:     &client.LoginResponse{Token: "fresh-token", User: user},
		authCheckResp: &client.AuthCheckResponse{Authenticated: true, User: user},
	}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "")
	require.NoError(t, b.Login(context.Background(), "alice", "hunter2"))

	assert.Equal(t, "fresh-token", store.tokens[testServerURL])
	assert.Equal(t, "fresh-token", api.token)
	assert.Equal(t, ScreenApp, ui.lastScreen())
	// Login returned the profile; no extra fetch
	assert.NotContains(t, api.calls, "current_user")

	// A later bootstrap in the same environment finds the token and does
	// not show the login screen again
	ui2 := &fakeUI{}
	b2 := newBootstrapper(api, ui2, store, "")
	require.NoError(t, b2.Bootstrap(context.Background()))
	assert.Equal(t, ScreenApp, ui2.lastScreen())
	assert.NotContains(t, ui2.screens, ScreenLogin)
}

func TestLoginFailureStaysUnauthenticated(t *testing.T) {
	store := newMockStore()
	api := &fakeAPI{loginErr: &client.APIError{StatusCode: 401, Detail: "Invalid username or password"}}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "")
	require.NoError(t, b.Login(context.Background(), "alice", "wrong"))

	assert.Contains(t, ui.errors, "Invalid username or password")
	assert.Empty(t, store.tokens[testServerURL])
	assert.False(t, b.State().Authenticated)
}

func TestLoginRequiresCredentials(t *testing.T) {
	api := &fakeAPI{}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, newMockStore(), "")
	require.NoError(t, b.Login(context.Background(), "", ""))

	assert.NotContains(t, api.calls, "login")
	assert.Contains(t, ui.errors, "Username and password are required")
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := newMockStore()
	store.tokens[testServerURL] = "token"

	user := &client.User{ID: "u5", Username: "alice"}
	api := &fakeAPI{
		authCheckResp: &client.AuthCheckResponse{Authenticated: true, User: user},
	}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, store, "")
	require.NoError(t, b.Bootstrap(context.Background()))
	require.True(t, b.State().Authenticated)

	b.Logout()
	b.Logout()

	_, exists := store.tokens[testServerURL]
	assert.False(t, exists)
	assert.Equal(t, ScreenLogin, ui.lastScreen())

	state := b.State()
	assert.Equal(t, State{Screen: ScreenLogin}, state)
}

func TestAppScreenShownBeforeDashboardSettles(t *testing.T) {
	api := &fakeAPI{
		user:         &client.User{ID: "u6"},
		sessionErr:   &client.APIError{StatusCode: 500, Detail: "Internal server error"},
		submittedErr: &client.APIError{StatusCode: 500, Detail: "Internal server error"},
	}
	ui := &fakeUI{}

	b := newBootstrapper(api, ui, newMockStore(), "query_id=AAE1&hash=abc")
	require.NoError(t, b.Bootstrap(context.Background()))

	// The app screen stays up even though every dashboard load failed
	assert.Equal(t, ScreenApp, ui.lastScreen())
	assert.NotContains(t, ui.screens, ScreenError)

	// The dashboard is still delivered, with the failed regions empty
	require.Len(t, ui.dashboards, 1)
	assert.Nil(t, ui.dashboards[0].Session)
	assert.False(t, ui.dashboards[0].ReportSubmitted)

	// Screen transition happened before the dashboard fetches were issued
	var firstDashCall int
	for i, call := range api.calls {
		if call == "today_session" {
			firstDashCall = i
			break
		}
	}
	assert.Greater(t, firstDashCall, 0)
}
