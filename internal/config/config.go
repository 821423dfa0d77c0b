package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/planner"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage: "sqlite" or "memory" (seeded demo household)
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Planner
	DueSoonDays    int
	PaidEpsilon    float64
	EFCapRate      float64
	EFTargetMonths int
	ReserveCushion core.Money

	// Reminder worker
	ReminderInterval time.Duration

	EFCacheTTL time.Duration
	LogLevel   string
	LogFormat  string // "text" or "json"
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	defaults := planner.DefaultConfig()
	return &Config{
		Port:         getEnv("PORT", "8081"),
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cashplan.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashplan"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "bill_due"),

		DueSoonDays:    getEnvInt("DUE_SOON_DAYS", defaults.DueSoonDays),
		PaidEpsilon:    getEnvFloat("PAID_EPSILON", defaults.PaidEpsilon),
		EFCapRate:      getEnvFloat("EF_CAP_RATE", defaults.EFCapRate),
		EFTargetMonths: getEnvInt("EF_TARGET_MONTHS", defaults.EFTargetMonths),
		ReserveCushion: getEnvMoney("RESERVE_CUSHION", defaults.ReserveCushion),

		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", time.Hour),
		EFCacheTTL:       getEnvDuration("EF_CACHE_TTL", 5*time.Minute),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}
}

// Planner returns the allocation settings carried by the configuration.
func (c *Config) Planner() planner.Config {
	return planner.Config{
		DueSoonDays:    c.DueSoonDays,
		PaidEpsilon:    c.PaidEpsilon,
		EFCapRate:      c.EFCapRate,
		EFTargetMonths: c.EFTargetMonths,
		ReserveCushion: c.ReserveCushion,
	}
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if err := c.Planner().Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.ReminderInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 minute", c.ReminderInterval))
	} else if c.ReminderInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at most 24 hours", c.ReminderInterval))
	}
	if c.EFCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid emergency fund cache TTL %v: must not be negative", c.EFCacheTTL))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvMoney reads a decimal amount such as "200" or "150.50". An explicit
// zero is honoured.
func getEnvMoney(key string, defaultValue core.Money) core.Money {
	if value := os.Getenv(key); value != "" {
		if cents, err := core.ParseDecimalToCents(value); err == nil {
			return core.Money{Cents: cents}
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil && f == 0 {
			return core.Money{}
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
