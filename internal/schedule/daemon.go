package schedule

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "rotapost/pkg/logx"
)

// Job is one triggered invocation.
type Job func(ctx context.Context) error

// Daemon fires Job on a schedule. A trigger that arrives while the previous
// run is still going is skipped, never queued.
type Daemon struct {
	spec Spec
	loc  *time.Location
	job  Job
	log  logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	entry   cron.EntryID
	runCtx  context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewDaemon parses spec and prepares a stopped daemon. An empty timezone
// means the local zone.
func NewDaemon(spec, timezone string, job Job, log logx.Logger) (*Daemon, error) {
	if job == nil {
		return nil, errors.New("job required")
	}
	ps, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if tz := strings.TrimSpace(timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		loc = l
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Daemon{spec: ps, loc: loc, job: job, log: log.With(logx.String("comp", "daemon"))}, nil
}

// cronLogger routes cron's own messages into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}

// Start registers the job and starts the trigger loop. Runs see ctx's values
// but not its cancellation: a signal that cancels ctx leaves the in-flight
// run alone, and only Stop cancels it once the grace period is over.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c != nil {
		return nil
	}
	d.runCtx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))

	cl := cronLogger{log: d.log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(d.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(d.spec.Expr(), d.fire)
	if err != nil {
		d.cancel()
		return err
	}
	d.c, d.entry = c, id
	c.Start()

	d.log.Info("daemon started",
		logx.String("spec", d.spec.Expr()),
		logx.String("tz", d.loc.String()),
		logx.Time("next", c.Entry(id).Next),
	)
	return nil
}

func (d *Daemon) fire() {
	d.mu.Lock()
	ctx := d.runCtx
	d.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	d.running.Add(1)
	defer d.running.Done()

	start := time.Now()
	if err := d.job(ctx); err != nil {
		d.log.Error("scheduled run failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		return
	}
	d.log.Debug("scheduled run finished", logx.Duration("took", time.Since(start)))
}

// Next is the next trigger time (zero when stopped).
func (d *Daemon) Next() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c == nil {
		return time.Time{}
	}
	return d.c.Entry(d.entry).Next
}

// Stop stops triggering and waits for the in-flight run until ctx expires,
// then cancels it.
func (d *Daemon) Stop(ctx context.Context) {
	d.mu.Lock()
	c := d.c
	cancel := d.cancel
	d.c = nil
	d.mu.Unlock()
	if c == nil {
		return
	}

	start := time.Now()
	d.log.Info("stop requested")
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// Run still going past the grace period.
		cancel()
		<-c.Stop().Done()
	}
	cancel()
	d.running.Wait()
	d.log.Info("daemon stopped", logx.Duration("took", time.Since(start)))
}
