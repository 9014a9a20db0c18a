// Package config loads comicrepack settings from the environment and device
// profiles from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "COMICREPACK_"

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config is the top-level configuration. CLI flags override these values.
type Config struct {
	Logging LoggingConfig

	Profile      string
	ProfilesFile string
	Width        int
	Height       int
	Quality      int
	RightToLeft  *bool // nil keeps the profile's page progression

	KindleGen   string
	Compression int
	Unpacker    string

	OutputDir    string
	Suffix       string
	Workers      int
	IncludeCover bool
	MetricsFile  string
}

// FromEnv loads configuration from environment with sensible defaults.
// Zero Width, Height and Quality mean "use the profile's value".
func FromEnv() Config {
	return Config{
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Pretty:     parseBool(getEnv("LOG_PRETTY", "false")),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "50"), 50),
			MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "5"), 5),
			MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
			Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
		},
		Profile:      getEnv("PROFILE", "kindle2022"),
		ProfilesFile: getEnv("PROFILES", ""),
		Width:        parseInt(getEnv("WIDTH", "0"), 0),
		Height:       parseInt(getEnv("HEIGHT", "0"), 0),
		Quality:      parseInt(getEnv("QUALITY", "0"), 0),
		RightToLeft:  lookupBool("RTL"),
		KindleGen:    getEnv("KINDLEGEN", "kindlegen"),
		Compression:  parseInt(getEnv("COMPRESSION", "1"), 1),
		Unpacker:     getEnv("UNPACKER", "mobiunpack"),
		OutputDir:    getEnv("OUTPUT_DIR", ""),
		Suffix:       getEnv("SUFFIX", "_repacked"),
		Workers:      parseInt(getEnv("WORKERS", "1"), 1),
		IncludeCover: parseBool(getEnv("INCLUDE_COVER", "false")),
		MetricsFile:  getEnv("METRICS_FILE", ""),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// lookupBool returns nil when key is unset, so callers can tell "false"
// from "not given".
func lookupBool(key string) *bool {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	b := parseBool(v)
	return &b
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
