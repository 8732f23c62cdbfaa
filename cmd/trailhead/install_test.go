package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallUninstallRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hooks")

	require.NoError(t, installHooks(dir))

	for _, hook := range hookNames {
		path := filepath.Join(dir, hook)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), hookMarker)
		assert.Contains(t, string(data), "trailhead "+hook)
		assert.True(t, strings.HasPrefix(string(data), "#!/bin/sh\n"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0o111, "%s must be executable", hook)
	}

	// Re-installing over our own shims is fine.
	require.NoError(t, installHooks(dir))

	require.NoError(t, uninstallHooks(dir))
	for _, hook := range hookNames {
		_, err := os.Stat(filepath.Join(dir, hook))
		assert.True(t, os.IsNotExist(err))
	}

	// Uninstall with nothing installed is a no-op.
	require.NoError(t, uninstallHooks(dir))
}

func TestInstallRefusesForeignHook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hooks")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	foreign := "#!/bin/sh\necho someone elses hook\n"
	path := filepath.Join(dir, "prepare-commit-msg")
	require.NoError(t, os.WriteFile(path, []byte(foreign), 0o755))

	err := installHooks(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has a prepare-commit-msg hook")

	// The foreign hook is untouched, by install and by uninstall.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, foreign, string(data))

	require.NoError(t, uninstallHooks(dir))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, foreign, string(data))
}
