// Package config loads process configuration from environment
// variables and CLI flags, matching the teacher's getEnv/getEnvInt
// pattern (apps/poller/internal/config) generalized to this service's
// variables (spec §6).
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the bootstrap needs to start the service.
type Config struct {
	Port     int
	Host     string
	LogLevel string

	DataFetchEndpoint     string
	DataFetchInterval     time.Duration
	ScheduleFetchEndpoint string
	ScheduleFetchInterval time.Duration

	// PersistPath, if set, enables the optional SQLite persistence
	// variant (internal/store) alongside the in-memory model.
	PersistPath string
}

// Load reads .env (if present; it only fills variables not already set
// in the environment), then .env.local (if present; it overrides them),
// then CLI flag overrides. Precedence, lowest to highest: .env, the
// process environment, .env.local, flags.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := &Config{
		Port:     getEnvInt("PORT", 9011),
		Host:     getEnv("HOST", "0.0.0.0"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataFetchEndpoint:     getEnv("ZI_DATA_FETCH_ENDPOINT", "https://www.zet.hr/gtfs-rt-protobuf"),
		ScheduleFetchEndpoint: getEnv("ZI_SCHEDULE_FETCH_ENDPOINT", "https://www.zet.hr/gtfs-scheduled/latest"),

		PersistPath: getEnv("PERSIST_PATH", ""),
	}

	dataInterval, err := ParseDuration(getEnv("ZI_DATA_FETCH_INTERVAL", "2s"))
	if err != nil {
		return nil, fmt.Errorf("ZI_DATA_FETCH_INTERVAL: %w", err)
	}
	cfg.DataFetchInterval = dataInterval

	scheduleInterval, err := ParseDuration(getEnv("ZI_SCHEDULE_FETCH_INTERVAL", "2min"))
	if err != nil {
		return nil, fmt.Errorf("ZI_SCHEDULE_FETCH_INTERVAL: %w", err)
	}
	cfg.ScheduleFetchInterval = scheduleInterval

	fs := flag.NewFlagSet("zet-live", flag.ContinueOnError)
	port := fs.Int("port", cfg.Port, "listener port")
	host := fs.String("host", cfg.Host, "listener host")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	cfg.Port = *port
	cfg.Host = *host

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ParseDuration parses the fetch-interval syntax from spec §6: an
// integer followed by a unit in {s, min, h, d, w, mo}, with month = 30
// days, week = 7 days, day = 24 hours. DST and leap events are
// deliberately ignored — every unit is a fixed multiple of a second.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid duration %q: no leading integer", s)
	}

	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	unit := strings.TrimSpace(s[i:])
	perUnit, ok := unitSeconds[unit]
	if !ok {
		return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, unit)
	}

	return time.Duration(n) * perUnit, nil
}

var unitSeconds = map[string]time.Duration{
	"s":   time.Second,
	"min": time.Minute,
	"h":   time.Hour,
	"d":   24 * time.Hour,
	"w":   7 * 24 * time.Hour,
	"mo":  30 * 24 * time.Hour,
}
