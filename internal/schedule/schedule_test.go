package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	logx "rotapost/pkg/logx"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		raw    string
		kind   SpecKind
		source string
		every  time.Duration
		expr   string
	}{
		{name: "cron", raw: "0 */6 * * *", kind: SpecCron, source: "cron", expr: "0 */6 * * *"},
		{name: "descriptor", raw: "@daily", kind: SpecCron, source: "cron", expr: "@daily"},
		{name: "prefixed cron", raw: "cron:30 8 * * *", kind: SpecCron, source: "cron", expr: "30 8 * * *"},
		{name: "duration", raw: "6h", kind: SpecInterval, source: "duration", every: 6 * time.Hour, expr: "@every 6h0m0s"},
		{name: "prefixed every", raw: "every:45m", kind: SpecInterval, source: "duration", every: 45 * time.Minute, expr: "@every 45m0s"},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", every: 90 * time.Minute, expr: "@every 1h30m0s"},
		{name: "prefixed hhmm", raw: "interval:00:45", kind: SpecInterval, source: "hhmm", every: 45 * time.Minute, expr: "@every 45m0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind || got.Source != tt.source {
				t.Fatalf("got %+v", got)
			}
			if tt.kind == SpecInterval && got.Every != tt.every {
				t.Fatalf("Every = %v, want %v", got.Every, tt.every)
			}
			if got.Expr() != tt.expr {
				t.Fatalf("Expr = %q, want %q", got.Expr(), tt.expr)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "00:75", "0s", "-5m", "cron:", "61 * * * *", "every:"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q): expected error", raw)
		}
	}
}

func TestNewDaemonRejects(t *testing.T) {
	job := func(context.Context) error { return nil }
	if _, err := NewDaemon("6h", "Mars/Olympus", job, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if _, err := NewDaemon("bogus", "", job, logx.Nop()); err == nil {
		t.Fatal("expected error for bad spec")
	}
	if _, err := NewDaemon("6h", "", nil, logx.Nop()); err == nil {
		t.Fatal("expected error for nil job")
	}
}

func TestDaemonFires(t *testing.T) {
	var runs atomic.Int32
	d, err := NewDaemon("@every 1s", "UTC", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, logx.Nop())
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	if !d.Next().IsZero() {
		t.Fatal("stopped daemon should have no next run")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Next().IsZero() {
		t.Fatal("started daemon should have a next run")
	}

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Stop(ctx)
	if runs.Load() == 0 {
		t.Fatal("job never fired")
	}
	// Stop is idempotent.
	d.Stop(ctx)
}

func TestDaemonStopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	var once atomic.Bool
	d, err := NewDaemon("@every 1s", "", func(ctx context.Context) error {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-ctx.Done()
		return ctx.Err()
	}, logx.Nop())
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Stop(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not cancel the in-flight run")
	}
}

func TestDaemonRunOutlivesParentWithinGrace(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var (
		once     atomic.Bool
		runErr   atomic.Value
		finished = make(chan struct{})
	)
	d, err := NewDaemon("@every 1s", "", func(ctx context.Context) error {
		if !once.CompareAndSwap(false, true) {
			return nil
		}
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		runErr.Store(fmt.Sprint(ctx.Err()))
		close(finished)
		return nil
	}, logx.Nop())
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	parent, cancelParent := context.WithCancel(context.Background())
	if err := d.Start(parent); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	// A signal cancels the parent; the run must keep going.
	cancelParent()
	select {
	case <-finished:
		t.Fatalf("run cancelled with its parent: %v", runErr.Load())
	case <-time.After(150 * time.Millisecond):
	}

	grace, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		d.Stop(grace)
		close(stopped)
	}()
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the run finished")
	}
	if got := runErr.Load(); got != "<nil>" {
		t.Fatalf("run ctx err = %v, want none within the grace period", got)
	}
}
