package config

import (
	"errors"
	"io/fs"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

var reEnvRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${NAME} references in one config string with values
// from lookup. Unset variables expand to "". Bare $NAME is left alone so
// captions can carry dollar signs.
func ExpandEnv(s string, lookup func(string) (string, bool)) string {
	if lookup == nil || !strings.Contains(s, "${") {
		return s
	}
	return reEnvRef.ReplaceAllStringFunc(s, func(m string) string {
		v, _ := lookup(m[2 : len(m)-1])
		return v
	})
}

// Trigger environment variables.
const (
	EnvTrigger     = "ROTAPOST_TRIGGER"
	EnvGitHubEvent = "GITHUB_EVENT_NAME"
)

// ManualTrigger reports whether the environment marks this invocation as a
// manual (all topics) run: ROTAPOST_TRIGGER=manual, or a GitHub Actions
// workflow_dispatch event.
func ManualTrigger(lookup func(string) (string, bool)) bool {
	if lookup == nil {
		return false
	}
	if v, ok := lookup(EnvTrigger); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "manual", "all", "workflow_dispatch":
			return true
		case "scheduled", "schedule", "cron":
			return false
		}
	}
	if v, ok := lookup(EnvGitHubEvent); ok {
		return strings.TrimSpace(v) == "workflow_dispatch"
	}
	return false
}
