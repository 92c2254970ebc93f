package pipeline

import (
	"context"
	"fmt"
	"time"

	"rotapost/internal/config"
	"rotapost/internal/eventbus"
	"rotapost/internal/failure"
	"rotapost/internal/rotation"
	"rotapost/internal/storage"
	logx "rotapost/pkg/logx"
)

// TopicProcessor handles a single topic.
type TopicProcessor interface {
	Process(ctx context.Context, topic config.Topic) Outcome
}

// Summary describes one invocation.
type Summary struct {
	Mode     rotation.Mode
	Plan     rotation.Plan
	Outcomes []Outcome
	// State is the rotation state after the run (persisted only when Saved).
	State storage.RotationState
	Saved bool
	Took  time.Duration
}

// Posted counts topics whose asset was uploaded.
func (s Summary) Posted() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Posted() {
			n++
		}
	}
	return n
}

// Runner executes invocations against a fixed topic list.
type Runner struct {
	topics    []config.Topic
	store     storage.Store
	processor TopicProcessor
	log       logx.Logger
	bus       eventbus.Bus
}

func NewRunner(topics []config.Topic, store storage.Store, p TopicProcessor, log logx.Logger, bus eventbus.Bus) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		topics:    append([]config.Topic(nil), topics...),
		store:     store,
		processor: p,
		log:       log.With(logx.String("comp", "runner")),
		bus:       bus,
	}
}

// Run loads the rotation state, processes the planned topics in order and,
// for scheduled runs, persists the advanced state. Topic failures never
// surface here; only state load/save errors are returned.
func (r *Runner) Run(ctx context.Context, mode rotation.Mode) (Summary, error) {
	start := time.Now()
	sum := Summary{Mode: mode}

	st, err := r.store.LoadRotation(ctx)
	if err != nil {
		return sum, fmt.Errorf("load rotation state: %w", err)
	}

	plan, next := rotation.Next(mode, r.topics, st)
	sum.Plan = plan
	sum.State = st
	if plan.Stale {
		r.log.Warn("stored rotation index out of range; wrapped",
			logx.Int("stored", st.CurrentIndex),
			logx.Int("topics", len(r.topics)),
			logx.Int("using", plan.Index),
		)
	}
	if len(plan.Topics) == 0 {
		r.log.Warn("no topics configured")
	}

	ids := make([]string, 0, len(plan.Topics))
	for _, t := range plan.Topics {
		ids = append(ids, t.ID)
	}
	r.log.Info("run started", logx.String("mode", mode.String()), logx.Any("topics", ids))

	for _, t := range plan.Topics {
		if err := ctx.Err(); err != nil {
			r.log.Warn("run interrupted", logx.String("topic", t.ID), logx.Err(err))
			break
		}
		sum.Outcomes = append(sum.Outcomes, r.processSafe(ctx, t))
	}

	switch {
	case plan.Advances() && len(sum.Outcomes) == 0:
		r.log.Warn("scheduled topic not attempted; rotation left unchanged",
			logx.String("topic", plan.Topics[0].ID),
			logx.Int("index", st.CurrentIndex),
		)
	case plan.Advances():
		// A topic interrupted mid-way was still attempted and moves on.
		if err := r.store.SaveRotation(context.WithoutCancel(ctx), next); err != nil {
			sum.Took = time.Since(start)
			return sum, fmt.Errorf("save rotation state: %w", err)
		}
		sum.State = next
		sum.Saved = true
	}
	sum.Took = time.Since(start)

	r.log.Info("run finished",
		logx.String("mode", mode.String()),
		logx.Int("posted", sum.Posted()),
		logx.Int("topics", len(plan.Topics)),
		logx.Int("next_index", sum.State.CurrentIndex),
		logx.Duration("took", sum.Took),
	)
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{Type: eventbus.RunDone, Data: eventbus.Run{
			Mode:      mode.String(),
			Topics:    len(plan.Topics),
			Posted:    sum.Posted(),
			NextIndex: sum.State.CurrentIndex,
			Took:      sum.Took,
		}})
	}
	return sum, nil
}

func (r *Runner) processSafe(ctx context.Context, t config.Topic) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("topic panicked",
				logx.String("topic", t.ID),
				logx.Any("panic", rec),
				logx.Stack(logx.StackTrace(3, 32)),
			)
			out = Outcome{TopicID: t.ID, Stage: StageResolve, Err: failure.Errorf(failure.Unknown, "pipeline.topic", "panic: %v", rec)}
		}
	}()
	return r.processor.Process(ctx, t)
}

// Peek returns the current state and the topic a scheduled run would take,
// without changing anything.
func (r *Runner) Peek(ctx context.Context) (storage.RotationState, rotation.Plan, error) {
	st, err := r.store.LoadRotation(ctx)
	if err != nil {
		return st, rotation.Plan{}, fmt.Errorf("load rotation state: %w", err)
	}
	plan, _ := rotation.Next(rotation.Scheduled, r.topics, st)
	return st, plan, nil
}
