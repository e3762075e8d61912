package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"webdesk/core/config"
	"webdesk/core/migrate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, migrate.DefaultChunkSize, cfg.Migration.ChunkSize)
	assert.Equal(t, migrate.OrphanFail, cfg.Migration.OrphanedBackups)
	assert.Equal(t, []string{"files", "messenger"}, cfg.Layers.Apps)
	assert.False(t, cfg.Storage.Enabled)
}

func TestLoadConfig_Sources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
server:
  port: "9090"
migration:
  chunk_size: 50
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_FORMAT=console\n"), 0o644))
	t.Setenv("MIGRATION_CHUNK_SIZE", "25")
	t.Setenv("LAYERS_APPS", "messenger")
	t.Cleanup(func() { os.Unsetenv("LOG_FORMAT") })

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Migration.ChunkSize)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"messenger"}, cfg.Layers.Apps)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"Driver", "DATABASE_DRIVER", "oracle"},
		{"OrphanPolicy", "MIGRATION_ORPHANED_BACKUPS", "ignore"},
		{"Port", "SERVER_PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := config.LoadConfig(t.TempDir())
			assert.Error(t, err)
		})
	}
}
