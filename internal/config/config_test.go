package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"META_DB_PATH", "DUCKDB_PATH", "JOBS_DIR", "LISTEN_ADDR", "LOG_LEVEL",
		"ENV", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "jobs", cfg.JobsDir)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("META_DB_PATH", "/tmp/meta.db")
	t.Setenv("DUCKDB_PATH", "/tmp/lake.duckdb")
	t.Setenv("JOBS_DIR", "/etc/lakemerge/jobs")
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENV", "production")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/meta.db", cfg.MetaDBPath)
	assert.Equal(t, "/tmp/lake.duckdb", cfg.DuckDBPath)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvRejectsMalformedNumbers(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "rps_not_a_number", key: "RATE_LIMIT_RPS", value: "fast", wantErr: "RATE_LIMIT_RPS"},
		{name: "burst_not_an_int", key: "RATE_LIMIT_BURST", value: "10.5", wantErr: "RATE_LIMIT_BURST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RATE_LIMIT_RPS", "")
			t.Setenv("RATE_LIMIT_BURST", "")
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), tt.value)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{JobsDir: "jobs"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "META_DB_PATH")

	cfg = &Config{MetaDBPath: "meta.db"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOBS_DIR")

	cfg = &Config{MetaDBPath: "meta.db", JobsDir: "jobs"}
	assert.NoError(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "DEBUG", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "warn", want: slog.LevelWarn},
		{level: "warning", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "bogus", want: slog.LevelInfo},
		{level: "", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
META_DB_PATH=/data/meta.db
LISTEN_ADDR=":7070"
LOG_LEVEL='debug'
MALFORMED LINE WITHOUT EQUALS
ENV=production
`), 0o600))

	t.Setenv("META_DB_PATH", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	// Pre-set values win over the file.
	t.Setenv("ENV", "development")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "/data/meta.db", os.Getenv("META_DB_PATH"))
	assert.Equal(t, ":7070", os.Getenv("LISTEN_ADDR"), "quotes are stripped")
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "development", os.Getenv("ENV"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
