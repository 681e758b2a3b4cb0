package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// Simulation
	PolicyFile string
	Seed       uint64
	TimeScale  float64

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		// Simulation
		PolicyFile: getEnv("CITYPULSE_POLICY_FILE", ""),
		Seed:       parseSeed(getEnv("CITYPULSE_SEED", "0")),
		TimeScale:  parseTimeScale(getEnv("CITYPULSE_TIME_SCALE", "1")),

		// Logging
		LogFile:  getEnv("CITYPULSE_LOG_FILE", "/tmp/citypulse.log"),
		LogLevel: parseLogLevel(getEnv("CITYPULSE_LOG_LEVEL", "INFO")),
	}
}

// Policy loads the policy file named by the config, or the embedded default.
func (c Config) Policy() (*Policy, error) {
	if c.PolicyFile == "" {
		return DefaultPolicy()
	}
	return LoadPolicy(c.PolicyFile)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseSeed returns 0 (time based) for anything unparsable.
func parseSeed(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseTimeScale falls back to real time for non-positive or invalid values.
func parseTimeScale(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 1
	}
	return v
}
