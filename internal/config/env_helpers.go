package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const envPrefix = "FUELCOACH_"

func getenv(key string) string { return os.Getenv(envPrefix + key) }

// lookupenv distinguishes "set to empty" from "unset".
func lookupenv(key string) (string, bool) {
	return os.LookupEnv(envPrefix + key)
}

func strField(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, raw string) error {
		*field(c) = raw
		return nil
	}
}

func pathField(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, raw string) error {
		*field(c) = expandHome(raw)
		return nil
	}
}

func intField(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatField(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, raw string) error {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func toggleField(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, raw string) error {
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on":
			*field(c) = true
		case "0", "false", "no", "off":
			*field(c) = false
		default:
			return fmt.Errorf("not a toggle: %q", raw)
		}
		return nil
	}
}

// normalizePathPrefix yields "" or a "/a/b" form without duplicate or trailing slashes.
func normalizePathPrefix(raw string) string {
	segments := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

func defaultBaseDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "fuelcoach")
	}
	return ".fuelcoach"
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
