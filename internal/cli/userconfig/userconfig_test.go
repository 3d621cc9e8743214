package userconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSelectedServerWithoutConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	url, alias, err := GetSelectedServer()
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Empty(t, alias)
}

func TestSetAndGetSelectedServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SetSelectedServer("https://attendance.acme.com", "office"))

	url, alias, err := GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "https://attendance.acme.com", url)
	assert.Equal(t, "office", alias)
}

func TestClearSelectedServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SetSelectedServer("https://attendance.acme.com", "office"))
	require.NoError(t, SetSelectedServer("", ""))

	url, alias, err := GetSelectedServer()
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Empty(t, alias)
}
