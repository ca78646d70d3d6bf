package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/tracker")
	t.Setenv("JWT_SECRET", "secret")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 168*time.Hour, cfg.TokenExpiry)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2097152), cfg.MaxUploadSize)
	assert.Equal(t, 5, cfg.AuthLockAttempts)
	assert.Equal(t, 15*time.Minute, cfg.AuthLockDuration)
	assert.False(t, cfg.AllowRegistration)
}

func TestParseOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("ALLOW_REGISTRATION", "true")
	t.Setenv("AUTH_LOCK_DURATION", "1h")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.AllowRegistration)
	assert.Equal(t, time.Hour, cfg.AuthLockDuration)
}

func TestParseErrors(t *testing.T) {
	t.Run("malformed value", func(t *testing.T) {
		setRequired(t)
		t.Setenv("MAX_UPLOAD_SIZE", "lots")
		_, err := Parse()
		assert.ErrorContains(t, err, "parse env:")
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/tracker")
		t.Setenv("JWT_SECRET", "")
		_, err := Parse()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("unknown driver", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DATABASE_DRIVER", "oracle")
		_, err := Parse()
		assert.ErrorContains(t, err, "oracle")
	})
}

func TestValidate_AllowedOrigins(t *testing.T) {
	cfg := Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    "file::memory:",
		JWTSecret:      "secret",
		MaxUploadSize:  1024,
	}
	assert.ErrorContains(t, cfg.Validate(), "ALLOWED_ORIGINS")

	cfg.AllowedOrigins = []string{"https://a.example"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRACKER_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TRACKER_TEST_DOTENV") })
	setRequired(t)

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "loaded", os.Getenv("TRACKER_TEST_DOTENV"))
}

func TestLoadWithoutDotEnv(t *testing.T) {
	setRequired(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
