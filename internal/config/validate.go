package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoTopics = errors.New("config: topics must not be empty")

// Validate checks structural invariants: at least one topic, unique ids,
// known kinds, a folder for folder topics, parseable durations and a known
// timezone.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if len(cfg.Topics) == 0 {
		return ErrNoTopics
	}
	seen := make(map[string]int, len(cfg.Topics))
	for i, t := range cfg.Topics {
		path := fmt.Sprintf("topics[%d]", i)
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return fmt.Errorf("%s.id is required", path)
		}
		if j, dup := seen[id]; dup {
			return fmt.Errorf("%s.id %q duplicates topics[%d]", path, id, j)
		}
		seen[id] = i

		switch t.Kind {
		case KindFolder:
			if strings.TrimSpace(t.Folder) == "" {
				return fmt.Errorf("%s.folder is required for kind %q", path, KindFolder)
			}
		case KindGenerated:
		default:
			return fmt.Errorf("%s.kind %q is invalid (use %q or %q)", path, t.Kind, KindFolder, KindGenerated)
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.State.Driver)) {
	case "", "file", "memory":
	default:
		return fmt.Errorf("state.driver %q is invalid (use \"file\" or \"memory\")", cfg.State.Driver)
	}
	for path, raw := range durationFields(cfg) {
		if _, err := ParseDurationOrDefault(path, raw, 0); err != nil {
			return err
		}
	}
	if tz := strings.TrimSpace(cfg.Schedule.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("schedule.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}
