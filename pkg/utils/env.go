package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Getenv retrieves the value of the environment variable named by the key.
// If the variable is not present or its value is empty, Getenv returns the fallback string.
func Getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if len(value) == 0 {
		return fallback
	}
	return value
}

// GetenvInt reads an integer environment variable. ok is false when the
// variable is set but cannot be parsed.
func GetenvInt(key string, fallback int) (int, bool) {
	raw := Getenv(key, "")
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, false
	}
	return n, true
}

// GetenvDuration reads a time.Duration (e.g. "15m") environment variable.
func GetenvDuration(key string, fallback time.Duration) (time.Duration, bool) {
	raw := Getenv(key, "")
	if raw == "" {
		return fallback, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, false
	}
	return d, true
}

// GetenvBool reads a boolean environment variable ("1", "true", "yes").
func GetenvBool(key string, fallback bool) bool {
	switch strings.ToLower(Getenv(key, "")) {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
