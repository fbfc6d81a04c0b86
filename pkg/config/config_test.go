package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	ctx, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/quayside", ctx.DataRoot)
	assert.Equal(t, "quayside", ctx.Network)
	assert.Equal(t, 7*24*time.Hour, ctx.Backup.Retention)
	assert.Equal(t, "info", ctx.Log.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chandler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_root: /opt/panel
log:
  level: debug
ports:
  http: 8080
backup:
  retention: 336h
`), 0o644))

	ctx, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/panel", ctx.DataRoot)
	assert.Equal(t, "debug", ctx.Log.Level)
	assert.Equal(t, 8080, ctx.Ports.HTTP)
	assert.Equal(t, 14*24*time.Hour, ctx.Backup.Retention)
	// Untouched sections keep their defaults.
	assert.Equal(t, 443, ctx.Ports.HTTPS)
	assert.Equal(t, "quayside", ctx.Network)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log level", "log:\n  level: loud\n"},
		{"port out of range", "ports:\n  http: 70000\n"},
		{"retention too short", "backup:\n  retention: 1h\n"},
		{"empty data root", "data_root: \"\"\n"},
		{"malformed yaml", "ports: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chandler.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	ctx := Default()

	assert.Equal(t, "/srv/quayside/state", ctx.StateDir())
	assert.Equal(t, "/srv/quayside/secrets", ctx.SecretsDir())
	assert.Equal(t, "/srv/quayside/backups", ctx.BackupDir())
	assert.Equal(t, "/srv/quayside/database/data", ctx.ServiceDataDir("database"))
	assert.Equal(t, "quayside-db", ctx.InstanceName("db"))
}

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}
