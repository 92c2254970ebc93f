package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationOrDefault parses a Go duration string for the config field
// at path. Empty or zero values yield def; negative values are errors.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q (use e.g. \"30s\", \"2m\")", path, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0, got %s", path, d)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// durationFields lists every duration in the document so a bad value fails
// the load instead of the first run that needs it.
func durationFields(cfg *Config) map[string]string {
	return map[string]string{
		"delivery.timeout":    cfg.Delivery.Timeout,
		"upload.timeout":      cfg.Upload.Timeout,
		"upload.timeout_step": cfg.Upload.TimeoutStep,
		"upload.delay":        cfg.Upload.Delay,
		"quotes.timeout":      cfg.Quotes.Timeout,
		"backgrounds.timeout": cfg.Backgrounds.Timeout,
	}
}
