// Package config loads the immutable process configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration. It is constructed once at
// startup and never mutated.
type Config struct {
	Host      string
	Port      int
	AccessKey string
	FalKeys   []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	LogLevel  string
	LogFormat string
}

// NewConfig builds a Config from environment variables and applies
// defaults. Missing credentials are reported loudly but do not prevent
// startup; request handling degrades to explicit errors instead.
func NewConfig() (*Config, error) {
	cfg := &Config{
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnvInt("PORT", 8080),
		AccessKey:    strings.TrimSpace(os.Getenv("ACCESS_KEY")),
		FalKeys:      parseKeys(os.Getenv("FAL_API_KEYS")),
		ReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		WriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 900)),
		IdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 120)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(cfg.FalKeys) == 0 {
		logrus.Warn("FAL_API_KEYS is not set or contains no usable keys; upstream submissions will fail until it is configured")
	} else {
		logrus.Infof("Loaded %d fal API key(s)", len(cfg.FalKeys))
	}
	if cfg.AccessKey == "" {
		logrus.Warn("ACCESS_KEY is not set; all inbound requests will be rejected as unauthorized")
	}

	return cfg, nil
}

// Validate checks structural configuration problems and reports all of
// them at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeouts must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func parseKeys(raw string) []string {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
