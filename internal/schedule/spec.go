// Package schedule triggers scheduled invocations from inside a long-running
// process, for hosts without an external scheduler.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind is the normalized kind of a schedule string.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

// Spec is a parsed schedule.
//
// Accepted forms:
//   - cron: "0 */6 * * *", "@daily", "@every 6h" (seconds field optional)
//   - Go duration: "6h", "90m"
//   - HH:MM interval: "06:00" (every 6 hours), "00:45"
//
// "cron:" forces cron parsing; "every:" or "interval:" forces an interval.
type Spec struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // "cron" | "duration" | "hhmm"
}

// Expr is the expression handed to the cron parser.
func (s Spec) Expr() string {
	if s.Kind == SpecInterval {
		return "@every " + s.Every.String()
	}
	return s.Cron
}

var (
	reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

	parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// ParseSchedule parses and validates a schedule string.
func ParseSchedule(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("schedule required")
	}

	var spec Spec
	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		spec = Spec{Kind: SpecCron, Cron: strings.TrimSpace(s[len("cron:"):]), Source: "cron"}
	case strings.HasPrefix(low, "every:"), strings.HasPrefix(low, "interval:"):
		v := strings.TrimSpace(s[strings.Index(s, ":")+1:])
		d, src, err := parseInterval(v)
		if err != nil {
			return Spec{}, err
		}
		spec = Spec{Kind: SpecInterval, Every: d, Source: src}
	case strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@"):
		spec = Spec{Kind: SpecCron, Cron: s, Source: "cron"}
	default:
		d, src, err := parseInterval(s)
		if err != nil {
			return Spec{}, fmt.Errorf(
				"invalid schedule %q (use cron like '0 */6 * * *', HH:MM like '06:00', or a duration like '6h')", raw)
		}
		spec = Spec{Kind: SpecInterval, Every: d, Source: src}
	}

	if spec.Kind == SpecCron {
		if spec.Cron == "" {
			return Spec{}, fmt.Errorf("cron expression required")
		}
		if _, err := parser.Parse(spec.Cron); err != nil {
			return Spec{}, fmt.Errorf("invalid cron %q: %w", spec.Cron, err)
		}
	}
	return spec, nil
}

func parseInterval(v string) (time.Duration, string, error) {
	if v == "" {
		return 0, "", fmt.Errorf("interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return 0, "", fmt.Errorf("invalid minutes in %q", v)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return 0, "", fmt.Errorf("interval must be > 0")
		}
		return d, "hhmm", nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, "", fmt.Errorf("invalid interval %q (use HH:MM or a Go duration like '6h')", v)
	}
	if d <= 0 {
		return 0, "", fmt.Errorf("interval must be > 0")
	}
	return d, "duration", nil
}
