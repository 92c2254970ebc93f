// Package pipeline drives one invocation: pick topics, then resolve, upload,
// deliver and clean up each one. A failing topic is logged and skipped; it
// never affects its siblings or the rotation.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"rotapost/internal/config"
	"rotapost/internal/content"
	"rotapost/internal/delivery"
	"rotapost/internal/eventbus"
	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

// Resolver stages the next asset of a topic.
type Resolver interface {
	Resolve(ctx context.Context, topic config.Topic) (*content.StagedAsset, error)
}

// Uploader publishes a local file and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Dispatcher sends a URL to channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, channels []delivery.Channel, assetURL, caption string) delivery.Report
}

// ChannelSource builds the channels of a topic.
type ChannelSource interface {
	ChannelsFor(topic config.Topic) []delivery.Channel
}

// Stage is where processing of a topic stopped.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageUpload   Stage = "upload"
	StageDispatch Stage = "dispatch"
	StageDone     Stage = "done"
)

// Outcome describes one processed topic.
type Outcome struct {
	TopicID string
	Stage   Stage
	Asset   *content.StagedAsset
	URL     string
	Report  delivery.Report
	Err     error
	Took    time.Duration
}

// Posted reports whether the asset reached the upload host.
func (o Outcome) Posted() bool { return o.URL != "" }

// Orchestrator runs the per-topic state machine:
// resolve, upload, dispatch, clean up.
type Orchestrator struct {
	resolver   Resolver
	uploader   Uploader
	dispatcher Dispatcher
	channels   ChannelSource
	log        logx.Logger
	bus        eventbus.Bus

	// remove deletes staged files; replaced in tests.
	remove func(string) error
}

func NewOrchestrator(r Resolver, u Uploader, d Dispatcher, ch ChannelSource, log logx.Logger, bus eventbus.Bus) *Orchestrator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{
		resolver:   r,
		uploader:   u,
		dispatcher: d,
		channels:   ch,
		log:        log.With(logx.String("comp", "pipeline")),
		bus:        bus,
		remove:     os.Remove,
	}
}

// Process handles one topic. It never returns an error; the outcome
// carries it for reporting.
func (o *Orchestrator) Process(ctx context.Context, topic config.Topic) (out Outcome) {
	start := time.Now()
	log := o.log.With(logx.String("topic", topic.ID))
	out = Outcome{TopicID: topic.ID, Stage: StageResolve}
	defer func() {
		out.Took = time.Since(start)
		o.publish(out)
	}()

	asset, err := o.resolver.Resolve(ctx, topic)
	if err != nil {
		out.Err = err
		msg := "resolve failed"
		if failure.KindOf(err) == failure.ResourceUnavailable {
			msg = "nothing to post"
		}
		logFailure(log, msg, err)
		return out
	}
	out.Asset = asset
	log.Info("asset staged", logx.String("path", asset.Path), logx.String("origin", asset.Origin.String()))

	out.Stage = StageUpload
	u, err := o.uploader.Upload(ctx, asset.Path)
	if asset.Origin == content.Synthesized {
		o.cleanup(log, asset.Path)
	}
	if err != nil {
		out.Err = err
		logFailure(log, "upload failed", err)
		return out
	}
	out.URL = u
	if asset.Origin == content.FromFolder {
		o.cleanup(log, asset.Path)
	}

	out.Stage = StageDispatch
	var chans []delivery.Channel
	if o.channels != nil {
		chans = o.channels.ChannelsFor(topic)
	}
	if len(chans) == 0 {
		log.Info("no channels configured", logx.String("url", u))
	} else {
		out.Report = o.dispatcher.Dispatch(ctx, chans, u, topic.Caption)
	}

	out.Stage = StageDone
	log.Info("topic done",
		logx.String("url", u),
		logx.Int("delivered", out.Report.Delivered()),
		logx.Int("failed", out.Report.Failed()),
		logx.Duration("took", time.Since(start)),
	)
	return out
}

func (o *Orchestrator) cleanup(log logx.Logger, path string) {
	if err := o.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error("staged file not removed", logx.String("path", path), logx.Err(err))
	}
}

func (o *Orchestrator) publish(out Outcome) {
	if o.bus == nil {
		return
	}
	ev := eventbus.Topic{
		ID:        out.TopicID,
		Stage:     string(out.Stage),
		URL:       out.URL,
		Delivered: out.Report.Delivered(),
		Failed:    out.Report.Failed(),
	}
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}
	o.bus.Publish(eventbus.Event{Type: eventbus.TopicDone, Data: ev})
}

// logFailure picks the level by failure kind: an empty source is routine,
// remote trouble is a warning, local I/O is an error.
func logFailure(log logx.Logger, msg string, err error) {
	kind := failure.KindOf(err)
	fields := []logx.Field{logx.String("kind", kind.String()), logx.Err(err)}
	switch kind {
	case failure.ResourceUnavailable:
		log.Info(msg, fields...)
	case failure.LocalIO, failure.Unknown:
		log.Error(msg, fields...)
	default:
		log.Warn(msg, fields...)
	}
}
