package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davomat-dev/davomat/internal/cli/config"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	origDir, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	require.NoError(t, os.Chdir(dir))
}

func TestRunInitCreatesConfig(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cmd := NewInitCmd()
	require.NoError(t, runInit(cmd, []string{"https://attendance.acme.com"}))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "https://attendance.acme.com", cfg.Servers[0].URL)
	assert.Equal(t, "office", cfg.Servers[0].Alias)
}

func TestRunInitAppendsServer(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cmd := NewInitCmd()
	require.NoError(t, runInit(cmd, []string{"https://attendance.acme.com"}))
	require.NoError(t, runInit(cmd, []string{"https://staging.acme.com"}))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "server-2", cfg.Servers[1].Alias)
}

func TestRunInitIgnoresDuplicate(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cmd := NewInitCmd()
	require.NoError(t, runInit(cmd, []string{"https://attendance.acme.com"}))
	require.NoError(t, runInit(cmd, []string{"https://attendance.acme.com"}))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 1)
}
