package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujalbistaa/crown/internal/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite://crown.db", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Google.ClientID)
}

func TestParse_ProviderCredentials(t *testing.T) {
	t.Setenv("CLIENT_ID", "google-id")
	t.Setenv("CLIENT_SECRET", "google-secret")
	t.Setenv("APP_ID", "fb-id")
	t.Setenv("APP_SECRET", "fb-secret")
	t.Setenv("CONSUMER_ID", "tw-id")
	t.Setenv("CONSUMER_SECRET", "tw-secret")
	t.Setenv("BASE_URL", "https://crown.example")

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, config.ProviderCredentials{ClientID: "google-id", ClientSecret: "google-secret"}, cfg.Google)
	assert.Equal(t, config.ProviderCredentials{ClientID: "fb-id", ClientSecret: "fb-secret"}, cfg.Facebook)
	assert.Equal(t, config.ProviderCredentials{ClientID: "tw-id", ClientSecret: "tw-secret"}, cfg.Twitter)
	assert.Equal(t, "https://crown.example/auth/google/crown", cfg.CallbackURL("google"))
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.True(t, cfg.SecureCookie)
}

func TestParse_InvalidSessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "0s")
	_, err := config.Parse()
	assert.Error(t, err)

	t.Setenv("SESSION_TTL", "tomorrow")
	_, err = config.Parse()
	assert.Error(t, err)
}

func TestLoad_MissingDotenvIsNotAnError(t *testing.T) {
	_, found, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoad_ReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=4321\n"), 0o600))

	// godotenv does not override variables that are already set, and
	// t.Setenv restores PORT when the test ends.
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))

	cfg, found, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "4321", cfg.Port)
}
