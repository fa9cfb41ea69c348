package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linkgate/urlshortener/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/", cfg.Server.FallbackURL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 6, cfg.ShortCode.Length)
	assert.Equal(t, 5, cfg.ShortCode.MaxRetries)
	assert.Equal(t, time.Hour, cfg.Security.GrantTTL)
	assert.Equal(t, 30, cfg.Analytics.TimelineDays)
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
  base_url: "https://sho.rt/"
security:
  grant_ttl: 30m
shortcode:
  length: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := config.Load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Security.GrantTTL)
	assert.Equal(t, 8, cfg.ShortCode.Length)
	assert.Equal(t, "https://sho.rt/abc123", cfg.ShortURL("abc123"))
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  driver: oracle\n"), 0o600))

	_, err := config.Load(viper.New(), dir)
	assert.Error(t, err)
}

func TestPasswordRoute(t *testing.T) {
	cfg, err := config.Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/protected/abc123", cfg.PasswordRoute("abc123"))
}

func TestReservedCodes(t *testing.T) {
	cfg, err := config.Load(viper.New(), t.TempDir())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"health", "api", "protected"}, cfg.ReservedCodes())

	cfg.Server.PasswordPath = "/unlock/links/"
	assert.Contains(t, cfg.ReservedCodes(), "unlock")
}
