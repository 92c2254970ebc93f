package delivery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"rotapost/internal/eventbus"
	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

// Config controls sends.
type Config struct {
	// Timeout bounds each channel send.
	Timeout time.Duration
	// RatePerSec limits sends across all channels.
	RatePerSec int
}

// Result is the outcome of one channel send.
type Result struct {
	Channel string
	Err     error
	Took    time.Duration
}

// Report summarizes one Dispatch call.
type Report struct {
	Results []Result
}

func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

func (r Report) Failed() int { return len(r.Results) - r.Delivered() }

// Dispatcher fans a URL out to channels, one at a time.
type Dispatcher struct {
	cfg     Config
	limiter *rate.Limiter
	log     logx.Logger
	bus     eventbus.Bus
}

func NewDispatcher(cfg Config, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// A topic has at most two channels; the burst lets both go out together
	// even at the default rate of one send per second.
	burst := max(cfg.RatePerSec, 2)
	return &Dispatcher{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		log:     log.With(logx.String("comp", "delivery")),
		bus:     bus,
	}
}

// Dispatch sends to every channel. Failures are logged and recorded in the
// report; they never stop the remaining sends.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []Channel, assetURL, caption string) Report {
	var rep Report
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		start := time.Now()
		err := d.sendOne(ctx, ch, assetURL, caption)
		res := Result{Channel: ch.Name(), Err: err, Took: time.Since(start)}
		rep.Results = append(rep.Results, res)

		if err != nil {
			d.log.Warn("delivery failed",
				logx.String("channel", res.Channel),
				logx.String("kind", failure.KindOf(err).String()),
				logx.Duration("took", res.Took),
				logx.Err(err),
			)
			d.publish(eventbus.DeliveryFailed, res, assetURL)
			continue
		}
		d.log.Info("delivered", logx.String("channel", res.Channel), logx.Duration("took", res.Took))
		d.publish(eventbus.DeliverySent, res, assetURL)
	}
	return rep
}

func (d *Dispatcher) publish(typ string, res Result, assetURL string) {
	if d.bus == nil {
		return
	}
	ev := eventbus.Delivery{Channel: res.Channel, URL: assetURL}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	d.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

// sendOne runs a single send under the rate limiter and the send timeout.
// The send runs on its own goroutine so a client that ignores ctx cannot
// hold the dispatcher past the deadline; a panic in it becomes an error.
func (d *Dispatcher) sendOne(ctx context.Context, ch Channel, assetURL, caption string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return failure.New(failure.Transient, "delivery.ratelimit", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("channel panicked",
					logx.String("channel", ch.Name()),
					logx.Any("panic", r),
					logx.Stack(logx.StackTrace(3, 32)),
				)
				done <- failure.Errorf(failure.Malformed, "delivery."+ch.Name(), "panic: %v", r)
			}
		}()
		done <- ch.Send(callCtx, assetURL, caption)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return failure.New(failure.Transient, "delivery."+ch.Name(), fmt.Errorf("send: %w", callCtx.Err()))
	}
}
