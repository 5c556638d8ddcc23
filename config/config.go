// Package config loads service configuration from environment variables.
//
// An optional .env file (path taken from ENV_FILE) is loaded first via godotenv;
// real environment variables always win. Load never fails; Validate reports
// what is missing so startup can fail fast with a useful message.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the session gate.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig

	// ShutdownTimeoutSeconds bounds the graceful HTTP shutdown.
	ShutdownTimeoutSeconds int
	// ReadinessDrainDelaySeconds is how long /ready fails before the HTTP
	// listener stops accepting, letting load balancers drain traffic.
	ReadinessDrainDelaySeconds int
}

type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

type LoggingConfig struct {
	Level string
}

type DatabaseConfig struct {
	URL string
}

type SessionConfig struct {
	// TTLMinutes is the idle lifetime of a session record.
	TTLMinutes int
	// SweepIntervalMinutes is how often expired session rows are purged.
	SweepIntervalMinutes int
	// CookieName carries the opaque session token.
	CookieName string
	// CookieSecure marks the session cookie Secure (set in non-dev envs).
	CookieSecure bool
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		// Best-effort: a missing .env file is fine outside local dev.
		_ = godotenv.Load(envFile)
	}

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "session-gate"),
			Version: getEnv("SERVICE_VERSION", "dev"),
			Env:     getEnv("SERVICE_ENV", "development"),
			Port:    getEnv("PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Session: SessionConfig{
			TTLMinutes:           getEnvInt("SESSION_TTL_MINUTES", 30),
			SweepIntervalMinutes: getEnvInt("SESSION_SWEEP_INTERVAL_MINUTES", 5),
			CookieName:           getEnv("SESSION_COOKIE_NAME", "session_token"),
			CookieSecure:         getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("TRACING_ENDPOINT", "localhost:4318"),
			SampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PROFILING_ENDPOINT", "http://localhost:4040"),
		},
		ShutdownTimeoutSeconds:     getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10),
		ReadinessDrainDelaySeconds: getEnvInt("READINESS_DRAIN_DELAY_SECONDS", 0),
	}
}

// Validate checks that required settings are present and sane.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Service.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if _, err := strconv.Atoi(c.Service.Port); err != nil {
		return fmt.Errorf("PORT must be numeric: %q", c.Service.Port)
	}
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive, got %d", c.Session.TTLMinutes)
	}
	if c.Session.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL_MINUTES must be positive, got %d", c.Session.SweepIntervalMinutes)
	}
	if c.Session.CookieName == "" {
		return errors.New("SESSION_COOKIE_NAME must not be empty")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be in [0,1], got %v", c.Tracing.SampleRate)
	}
	return nil
}

// GetSessionTTLDuration returns the session lifetime as a duration.
func (c *Config) GetSessionTTLDuration() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// GetSweepIntervalDuration returns the expired-session sweep interval.
func (c *Config) GetSweepIntervalDuration() time.Duration {
	return time.Duration(c.Session.SweepIntervalMinutes) * time.Minute
}

// GetShutdownTimeoutDuration returns the graceful shutdown timeout.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// GetReadinessDrainDelayDuration returns the pre-shutdown drain delay.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return time.Duration(c.ReadinessDrainDelaySeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
