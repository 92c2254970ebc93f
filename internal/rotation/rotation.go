// Package rotation decides which topics an invocation processes.
package rotation

import (
	"rotapost/internal/config"
	"rotapost/internal/storage"
)

// Mode is the invocation mode derived from the external trigger.
type Mode int

const (
	// Scheduled processes exactly one topic and advances the rotation.
	Scheduled Mode = iota
	// Manual processes every topic and leaves the rotation untouched.
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "scheduled"
}

// ModeFor maps the manual trigger flag to a Mode.
func ModeFor(manual bool) Mode {
	if manual {
		return Manual
	}
	return Scheduled
}

// Plan is the outcome of Next.
type Plan struct {
	Mode   Mode
	Topics []config.Topic
	// Index is the rotation slot of the scheduled topic (-1 for manual runs).
	Index int
	// Stale is set when the persisted index was outside the current topic
	// list and had to be wrapped.
	Stale bool
}

// Advances reports whether the plan's state must be persisted after the run.
func (p Plan) Advances() bool { return p.Mode == Scheduled && len(p.Topics) > 0 }

// Next returns the topics to process and the state to persist afterwards.
//
// Scheduled runs take the topic at state.CurrentIndex (mod len(topics)) and
// advance the index by one, wrapping. Manual runs return every topic in
// declared order with the state unchanged. The index moves regardless of
// how processing turns out so one broken topic never stalls the others.
func Next(mode Mode, topics []config.Topic, state storage.RotationState) (Plan, storage.RotationState) {
	n := len(topics)
	if n == 0 {
		return Plan{Mode: mode, Index: -1}, state
	}

	if mode == Manual {
		all := make([]config.Topic, n)
		copy(all, topics)
		return Plan{Mode: Manual, Topics: all, Index: -1}, state
	}

	idx := state.CurrentIndex % n
	if idx < 0 {
		idx += n
	}
	plan := Plan{
		Mode:   Scheduled,
		Topics: []config.Topic{topics[idx]},
		Index:  idx,
		Stale:  state.CurrentIndex != idx,
	}
	return plan, storage.RotationState{CurrentIndex: (idx + 1) % n}
}
