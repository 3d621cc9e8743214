package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesServerURL(t *testing.T) {
	assert.Equal(t, "https://attendance.example.com", New("attendance.example.com").baseURL)
	assert.Equal(t, "http://localhost:8080", New("http://localhost:8080/").baseURL)
}

func TestCredentialPrecedence(t *testing.T) {
	var gotInitData, gotAuth, gotDevMode string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInitData = r.Header.Get("X-Telegram-Init-Data")
		gotAuth = r.Header.Get("Authorization")
		gotDevMode = r.Header.Get("X-Dev-Mode")
		_ = json.NewEncoder(w).Encode(map[string]bool{"is_admin": false})
	}))
	defer server.Close()

	c := New(server.URL)
	c.SetInitData("query_id=AAE1&hash=abc")
	c.SetBearerToken("some-token")
	c.SetDevMode(true)

	_, err := c.IsAdmin(context.Background())
	require.NoError(t, err)

	// Exactly one credential goes on the wire; init data wins
	assert.Equal(t, "query_id=AAE1&hash=abc", gotInitData)
	assert.Empty(t, gotAuth)
	assert.Empty(t, gotDevMode)
}

func TestBearerTokenHeader(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(&User{ID: "u1"})
	}))
	defer server.Close()

	c := New(server.URL)
	c.SetBearerToken("some-token")

	_, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer some-token", gotAuth)
}

func TestAPIErrorCarriesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid username or password"})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.Login(context.Background(), "alice", "wrong")

	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid username or password", apiErr.Detail)
	assert.Equal(t, "Invalid username or password", apiErr.Error())
}

func TestAPIErrorWithoutDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.CurrentUser(context.Background())

	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "server returned status 502", apiErr.Error())
}

func TestTodaySessionNull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session": null}`))
	}))
	defer server.Close()

	c := New(server.URL)
	session, err := c.TodaySession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRecordLocationSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"recorded": false, "message": "Outside work hours"}`))
	}))
	defer server.Close()

	c := New(server.URL)
	result, err := c.RecordLocation(context.Background(), 41.3, 69.2)

	require.NoError(t, err)
	assert.False(t, result.WasRecorded())
	assert.Equal(t, "Outside work hours", result.Message)
}

func TestRecordLocationStored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "p1", "is_inside_office": true}`))
	}))
	defer server.Close()

	c := New(server.URL)
	result, err := c.RecordLocation(context.Background(), 41.3, 69.2)

	require.NoError(t, err)
	assert.True(t, result.WasRecorded())
	assert.True(t, result.IsInsideOffice)
}

func TestAuthCheckHonorsParentContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := New(server.URL)
	c.SetBearerToken("token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AuthCheck(ctx)
	assert.Error(t, err)
}
