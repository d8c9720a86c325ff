package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dhruvsoni1802/browser-webdriver/internal/driver"
)

// Config holds all service configuration
type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// WebDriver configuration
	WebDriverURLs  []string
	DriverPath     string // empty when no local drivers are launched
	MaxDrivers     int
	RequestTimeout time.Duration
	HealthInterval time.Duration
	SessionTimeout time.Duration

	// Redis configuration, RedisAddr empty disables persistence
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
}

func Load() (*Config, error) {
	driverPath, err := resolveDriverPath(os.Getenv("DRIVER_PATH"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		WebDriverURLs:  getEnvAsList("WEBDRIVER_URLS", []string{"http://localhost:4444"}),
		DriverPath:     driverPath,
		MaxDrivers:     getEnvAsInt("MAX_DRIVERS", 1),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		HealthInterval: getEnvAsDuration("HEALTH_INTERVAL", 30*time.Second),
		SessionTimeout: getEnvAsDuration("SESSION_TIMEOUT", 30*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 1*time.Hour),
	}

	// Launching local drivers replaces the default remote URL
	if cfg.DriverPath != "" && os.Getenv("WEBDRIVER_URLS") == "" {
		cfg.WebDriverURLs = nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if len(c.WebDriverURLs) == 0 && c.DriverPath == "" {
		return fmt.Errorf("no webdriver endpoints: set WEBDRIVER_URLS or DRIVER_PATH")
	}
	for _, raw := range c.WebDriverURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid webdriver url: %q", raw)
		}
	}
	if c.DriverPath != "" && (c.MaxDrivers < 1 || c.MaxDrivers > 10) {
		return fmt.Errorf("MAX_DRIVERS must be between 1 and 10, got %d", c.MaxDrivers)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("HEALTH_INTERVAL must be positive")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether ENV=production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// resolveDriverPath maps DRIVER_PATH: empty means no local drivers, "auto"
// searches for one, anything else must be an executable.
func resolveDriverPath(val string) (string, error) {
	switch val {
	case "":
		return "", nil
	case "auto":
		return driver.FindDriver("")
	default:
		return driver.FindDriver(val)
	}
}

func getEnv(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty entries
func getEnvAsList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
