package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagDefaults_BrokenConfigIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deauth.toml")
	require.NoError(t, os.WriteFile(path, []byte("db_pth = \"/srv/deauth/deauth.db\"\n"), 0o600))
	t.Setenv("DEAUTH_CONFIG", path)
	t.Setenv("DEAUTH_IDENTITY", "alice")

	_, err := flagDefaults()
	require.ErrorContains(t, err, path)
}

func TestFlagDefaults_UsesConfigDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deauth.toml")
	dbPath := filepath.Join(dir, "deauth.db")
	require.NoError(t, os.WriteFile(path, []byte("db_path = \""+dbPath+"\"\n"), 0o600))
	t.Setenv("DEAUTH_CONFIG", path)
	t.Setenv("DEAUTH_IDENTITY", "alice")
	t.Setenv("DEAUTH_DB_PATH", "")

	cfg, err := flagDefaults()
	require.NoError(t, err)
	require.Equal(t, dbPath, cfg.DBPath)
}

func TestFlagDefaults_NoConfigFile(t *testing.T) {
	t.Setenv("DEAUTH_CONFIG", "")

	cfg, err := flagDefaults()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.DBPath)
}
