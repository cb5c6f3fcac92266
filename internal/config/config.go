// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string

	// SocrataBaseURL overrides the open-data endpoint (mirrors, tests).
	SocrataBaseURL string
	// SocrataAppToken lifts the anonymous throttling limits when set.
	SocrataAppToken string

	CheckTick      time.Duration
	MinRunInterval time.Duration

	// AdvanceBaselineOnNotifyFailure keeps the "seen" baseline moving
	// even when a notification could not be delivered.
	AdvanceBaselineOnNotifyFailure bool

	AllowedUsers []int64
}

// Load reads configuration from the environment, with an optional
// .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/secop.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	tick, err := minutesEnv("CHECK_TICK_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	minRun, err := minutesEnv("MIN_RUN_INTERVAL_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	advance := true
	if raw := os.Getenv("ADVANCE_BASELINE_ON_NOTIFY_FAILURE"); raw != "" {
		advance, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ADVANCE_BASELINE_ON_NOTIFY_FAILURE %q: %w", raw, err)
		}
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	return &Config{
		TelegramBotToken:               token,
		DatabasePath:                   dbPath,
		LogLevel:                       logLevel,
		SocrataBaseURL:                 os.Getenv("SOCRATA_BASE_URL"),
		SocrataAppToken:                os.Getenv("SOCRATA_APP_TOKEN"),
		CheckTick:                      tick,
		MinRunInterval:                 minRun,
		AdvanceBaselineOnNotifyFailure: advance,
		AllowedUsers:                   allowedUsers,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func minutesEnv(key string, def int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(def) * time.Minute, nil
	}
	mins, err := strconv.Atoi(raw)
	if err != nil || mins < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number of minutes", key, raw)
	}
	return time.Duration(mins) * time.Minute, nil
}
