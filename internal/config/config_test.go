package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "ENV", "WEBDRIVER_URLS", "DRIVER_PATH", "MAX_DRIVERS",
		"REQUEST_TIMEOUT", "HEALTH_INTERVAL", "SESSION_TIMEOUT",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, []string{"http://localhost:4444"}, cfg.WebDriverURLs)
	assert.Empty(t, cfg.DriverPath)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("WEBDRIVER_URLS", "http://grid-a:4444, ,https://grid-b/wd/hub")
	t.Setenv("DRIVER_PATH", "")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"http://grid-a:4444", "https://grid-b/wd/hub"}, cfg.WebDriverURLs)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoadWithDriverPath(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "chromedriver")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	t.Setenv("DRIVER_PATH", exe)
	t.Setenv("WEBDRIVER_URLS", "")
	t.Setenv("MAX_DRIVERS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, exe, cfg.DriverPath)
	assert.Equal(t, 2, cfg.MaxDrivers)
	assert.Empty(t, cfg.WebDriverURLs)

	t.Setenv("DRIVER_PATH", filepath.Join(t.TempDir(), "missing"))
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		WebDriverURLs:  []string{"http://localhost:4444"},
		RequestTimeout: time.Second,
		HealthInterval: time.Second,
		SessionTimeout: time.Second,
	}
	require.NoError(t, valid.Validate())

	noEndpoints := valid
	noEndpoints.WebDriverURLs = nil
	assert.Error(t, noEndpoints.Validate())

	badURL := valid
	badURL.WebDriverURLs = []string{"localhost:4444"}
	assert.Error(t, badURL.Validate())

	tooMany := valid
	tooMany.DriverPath = "/usr/bin/chromedriver"
	tooMany.MaxDrivers = 11
	assert.Error(t, tooMany.Validate())

	noTimeout := valid
	noTimeout.RequestTimeout = 0
	assert.Error(t, noTimeout.Validate())
}
