// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr            string
	DBPath                string
	CheckInterval         time.Duration
	SafetyRefreshInterval time.Duration
	GracePeriod           time.Duration
	Debounce              time.Duration
	RosterLocale          string
	RosterMaxEntries      int
	AlertWebhookURL       string
}

// Load reads configuration from environment variables and returns a validated
// Config. All variables are optional with defaults: VIPROSTER_LISTEN_ADDR
// (127.0.0.1:8080), VIPROSTER_DB_PATH (viproster.db), VIPROSTER_CHECK_INTERVAL
// (1h), VIPROSTER_SAFETY_REFRESH_INTERVAL (15m), VIPROSTER_GRACE_PERIOD (72h),
// VIPROSTER_DEBOUNCE (700ms), VIPROSTER_ROSTER_LOCALE (fr),
// VIPROSTER_ROSTER_MAX (60). VIPROSTER_ALERT_WEBHOOK_URL enables the webhook
// notification sink; when empty, alerts go to the log only.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:            "127.0.0.1:8080",
		DBPath:                "viproster.db",
		CheckInterval:         time.Hour,
		SafetyRefreshInterval: 15 * time.Minute,
		GracePeriod:           72 * time.Hour,
		Debounce:              700 * time.Millisecond,
		RosterLocale:          "fr",
		RosterMaxEntries:      60,
	}

	if v, ok := os.LookupEnv("VIPROSTER_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("VIPROSTER_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("VIPROSTER_ROSTER_LOCALE"); ok {
		cfg.RosterLocale = v
	}
	cfg.AlertWebhookURL = os.Getenv("VIPROSTER_ALERT_WEBHOOK_URL")

	for _, d := range []struct {
		name string
		dst  *time.Duration
	}{
		{"VIPROSTER_CHECK_INTERVAL", &cfg.CheckInterval},
		{"VIPROSTER_SAFETY_REFRESH_INTERVAL", &cfg.SafetyRefreshInterval},
		{"VIPROSTER_GRACE_PERIOD", &cfg.GracePeriod},
		{"VIPROSTER_DEBOUNCE", &cfg.Debounce},
	} {
		v, ok := os.LookupEnv(d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s has invalid duration %q: %w", d.name, v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %q", d.name, v)
		}
		*d.dst = parsed
	}

	if v, ok := os.LookupEnv("VIPROSTER_ROSTER_MAX"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("VIPROSTER_ROSTER_MAX must be a positive integer, got %q", v)
		}
		cfg.RosterMaxEntries = n
	}

	return cfg, nil
}
