package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRAILHEAD_DATA_DIR", dir)

	assert.Equal(t, dir, DataDir())
	assert.Equal(t, filepath.Join(dir, "trailhead.db"), DBPath())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), ConfigPath())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("TRAILHEAD_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultVerboseThreshold, cfg.VerboseThreshold)
	assert.Equal(t, DefaultInactivityMins, cfg.InactivityWindowMinutes)
	assert.Equal(t, DefaultMaxTrailerFiles, cfg.MaxTrailerFiles)
	assert.Equal(t, DefaultServerPort, cfg.ServerPort)
	assert.Empty(t, cfg.WatchDir)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	t.Setenv("TRAILHEAD_DATA_DIR", t.TempDir())

	cfg := Default()
	cfg.VerboseThreshold = 3
	cfg.InactivityWindowMinutes = 45
	cfg.WatchDir = "/var/claude/projects"
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.VerboseThreshold)
	assert.Equal(t, 45, loaded.InactivityWindowMinutes)
	assert.Equal(t, "/var/claude/projects", loaded.WatchDir)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRAILHEAD_DATA_DIR", dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("verbose_threshold: 2\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.VerboseThreshold)
	assert.Equal(t, DefaultInactivityMins, cfg.InactivityWindowMinutes)
	assert.Equal(t, DefaultServerPort, cfg.ServerPort)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRAILHEAD_DATA_DIR", dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("verbose_threshold: -1\ninactivity_window_minutes: 0\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultVerboseThreshold, cfg.VerboseThreshold)
	assert.Equal(t, DefaultInactivityMins, cfg.InactivityWindowMinutes)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRAILHEAD_DATA_DIR", dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("verbose_threshold: [not a number"), 0o644))

	_, err := Load()
	require.Error(t, err)
}

func TestValueAndSetValue(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{
			name:  "verbose threshold",
			key:   "verbose_threshold",
			value: "0",
		},
		{
			name:    "negative verbose threshold",
			key:     "verbose_threshold",
			value:   "-1",
			wantErr: true,
		},
		{
			name:  "inactivity window",
			key:   "inactivity_window_minutes",
			value: "60",
		},
		{
			name:    "zero inactivity window",
			key:     "inactivity_window_minutes",
			value:   "0",
			wantErr: true,
		},
		{
			name:  "max trailer files",
			key:   "max_trailer_files",
			value: "12",
		},
		{
			name:  "server port",
			key:   "server_port",
			value: "9000",
		},
		{
			name:    "port out of range",
			key:     "server_port",
			value:   "70000",
			wantErr: true,
		},
		{
			name:    "not a number",
			key:     "server_port",
			value:   "eighty",
			wantErr: true,
		},
		{
			name:  "watch dir",
			key:   "watch_dir",
			value: "/somewhere",
		},
		{
			name:    "unknown key",
			key:     "no_such_key",
			value:   "1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cfg.SetValue(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, err := cfg.Value(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}

	_, err := cfg.Value("no_such_key")
	require.Error(t, err)
}

func TestInactivityWindow(t *testing.T) {
	cfg := Default()
	cfg.InactivityWindowMinutes = 45
	assert.Equal(t, "45m0s", cfg.InactivityWindow().String())
}
