package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CATALOG_DB_PATH", "LISTEN_ADDR", "LOG_LEVEL", "ENV",
		"DEFAULT_SCHEMA", "LINEAGE_MAX_DEPTH", "MAX_ROUTINE_SCAN",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dota_catalog.sqlite", cfg.CatalogDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "dbo", cfg.DefaultSchema)
	assert.Equal(t, DefaultLineageDepth, cfg.LineageMaxDepth)
	assert.Equal(t, DefaultMaxRoutineScan, cfg.MaxRoutineScan)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_DB_PATH", "/tmp/mirror.sqlite")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEFAULT_SCHEMA", "app")
	t.Setenv("LINEAGE_MAX_DEPTH", "4")
	t.Setenv("MAX_ROUTINE_SCAN", "50")
	t.Setenv("RATE_LIMIT_RPS", "10")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/mirror.sqlite", cfg.CatalogDBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "app", cfg.DefaultSchema)
	assert.Equal(t, 4, cfg.LineageMaxDepth)
	assert.Equal(t, 50, cfg.MaxRoutineScan)
	assert.Equal(t, float64(10), cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadFromEnv_DepthClampedToHardCap(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINEAGE_MAX_DEPTH", "50")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, HardLineageDepthCap, cfg.LineageMaxDepth)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "hard cap")
}

func TestLoadFromEnv_MalformedNumbersWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINEAGE_MAX_DEPTH", "lots")
	t.Setenv("MAX_ROUTINE_SCAN", "-3")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultLineageDepth, cfg.LineageMaxDepth)
	assert.Equal(t, DefaultMaxRoutineScan, cfg.MaxRoutineScan)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadFromEnv_ProductionRejectsWildcardCORS(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS")

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://dota.example.com")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), tt.level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("sets_unset_variables", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		path := filepath.Join(dir, ".env")
		content := "# comment\nCATALOG_DB_PATH=/data/mirror.sqlite\nDEFAULT_SCHEMA=\"sales\"\n\nBROKEN LINE\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "/data/mirror.sqlite", os.Getenv("CATALOG_DB_PATH"))
		assert.Equal(t, "sales", os.Getenv("DEFAULT_SCHEMA"))
	})

	t.Run("environment_takes_precedence", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DEFAULT_SCHEMA", "app")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("DEFAULT_SCHEMA=sales\n"), 0o600))

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "app", os.Getenv("DEFAULT_SCHEMA"))
	})

	t.Run("missing_file_is_not_an_error", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
	})
}
