package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load resolves the full configuration from the environment. The sequence is:
//
//  1. Load a .env file if present (non-fatal when absent; local convenience).
//  2. Populate the Config struct from envconfig tags.
//  3. Validate the result with go-playground/validator.
//
// Any failure is returned as an error so the caller can fail fast; partially
// populated configuration is never used.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal case outside local
	// development, and envconfig reads the real environment either way.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate runs struct-tag validation plus the cross-field checks that tags
// cannot express.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, _, err := ParseTimeOfDay(cfg.Scheduler.ReminderAt); err != nil {
		return fmt.Errorf("invalid REMINDER_AT: %w", err)
	}
	if cfg.Scheduler.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	return nil
}

// ParseTimeOfDay parses an "HH:MM" string into hour and minute components.
// The input must be exactly five characters; trailing content is rejected.
func ParseTimeOfDay(s string) (int, int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("expected format HH:MM, got %q", s)
	}
	var hour, minute int
	if n, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil || n != 2 {
		return 0, 0, fmt.Errorf("expected format HH:MM, got %q", s)
	}
	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute %d out of range [0,59]", minute)
	}
	return hour, minute, nil
}
