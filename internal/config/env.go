// Package config provides configuration helpers for go-teslacam commands:
// environment overrides and the YAML application config.
package config

import (
	"os"
	"strconv"
)

// Environment variables read by the commands.
const (
	EnvPort     = "TESLACAM_PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEventDir = "TESLACAM_EVENT_DIR"
	EnvConfig   = "TESLACAM_CONFIG"
)

// Env returns the value of key, or def if it is unset or empty.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvFloat returns key parsed as a float, or def if unset or malformed.
func EnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Port returns the listen port from TESLACAM_PORT.
// Falls back to the provided default if not set.
func Port(def string) string {
	return Env(EnvPort, def)
}

// LogLevel returns the log level from LOG_LEVEL or def.
func LogLevel(def string) string {
	return Env(EnvLogLevel, def)
}

// EventDir returns the event folder from TESLACAM_EVENT_DIR or def.
func EventDir(def string) string {
	return Env(EnvEventDir, def)
}
