package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "token only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "test-token"},
			want: &Config{
				TelegramBotToken:               "test-token",
				DatabasePath:                   "./data/secop.db",
				LogLevel:                       "info",
				CheckTick:                      15 * time.Minute,
				MinRunInterval:                 15 * time.Minute,
				AdvanceBaselineOnNotifyFailure: true,
				AllowedUsers:                   nil,
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":                 "tok",
				"DATABASE_PATH":                      "/tmp/secop.db",
				"LOG_LEVEL":                          "debug",
				"SOCRATA_BASE_URL":                   "https://mirror.example.com/resource/x.json",
				"SOCRATA_APP_TOKEN":                  "app-token",
				"CHECK_TICK_MINUTES":                 "30",
				"MIN_RUN_INTERVAL_MINUTES":           "60",
				"ADVANCE_BASELINE_ON_NOTIFY_FAILURE": "false",
				"ALLOWED_USERS":                      "111,222,333",
			},
			want: &Config{
				TelegramBotToken:               "tok",
				DatabasePath:                   "/tmp/secop.db",
				LogLevel:                       "debug",
				SocrataBaseURL:                 "https://mirror.example.com/resource/x.json",
				SocrataAppToken:                "app-token",
				CheckTick:                      30 * time.Minute,
				MinRunInterval:                 60 * time.Minute,
				AdvanceBaselineOnNotifyFailure: false,
				AllowedUsers:                   []int64{111, 222, 333},
			},
		},
		{
			name: "allowed users with spaces",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      " 10 , 20 , ",
			},
			want: &Config{
				TelegramBotToken:               "tok",
				DatabasePath:                   "./data/secop.db",
				LogLevel:                       "info",
				CheckTick:                      15 * time.Minute,
				MinRunInterval:                 15 * time.Minute,
				AdvanceBaselineOnNotifyFailure: true,
				AllowedUsers:                   []int64{10, 20},
			},
		},
		{
			name: "invalid user id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      "10,abc",
			},
			wantErr: true,
		},
		{
			name: "invalid tick",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"CHECK_TICK_MINUTES": "zero",
			},
			wantErr: true,
		},
		{
			name: "invalid policy flag",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":                 "tok",
				"ADVANCE_BASELINE_ON_NOTIFY_FAILURE": "maybe",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			// Clear the variables the case does not set.
			for _, k := range []string{
				"TELEGRAM_BOT_TOKEN", "DATABASE_PATH", "LOG_LEVEL",
				"SOCRATA_BASE_URL", "SOCRATA_APP_TOKEN",
				"CHECK_TICK_MINUTES", "MIN_RUN_INTERVAL_MINUTES",
				"ADVANCE_BASELINE_ON_NOTIFY_FAILURE", "ALLOWED_USERS",
			} {
				if _, ok := tt.env[k]; !ok {
					t.Setenv(k, "")
				}
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []int64
		userID  int64
		want    bool
	}{
		{"empty list permits everyone", nil, 12345, true},
		{"listed user", []int64{1, 2, 3}, 2, true},
		{"unlisted user", []int64{1, 2, 3}, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{AllowedUsers: tt.allowed}
			if got := c.IsUserAllowed(tt.userID); got != tt.want {
				t.Errorf("IsUserAllowed(%d) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}
