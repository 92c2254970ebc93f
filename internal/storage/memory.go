package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It is used for dry runs and tests.
type Memory struct {
	mu      sync.Mutex
	state   *RotationState
	history []string
	closed  bool

	// Saves counts SaveRotation calls.
	Saves int
}

func NewMemory() *Memory { return &Memory{} }

// NewMemoryAt returns a Memory store that already holds st.
func NewMemoryAt(st RotationState, history ...string) *Memory {
	return &Memory{state: &st, history: append([]string(nil), history...)}
}

func (m *Memory) LoadRotation(ctx context.Context) (RotationState, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return RotationState{}, ErrClosed
	}
	if m.state == nil {
		m.state = &RotationState{}
	}
	return *m.state, nil
}

func (m *Memory) SaveRotation(ctx context.Context, st RotationState) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.state = &st
	m.Saves++
	return nil
}

func (m *Memory) QuoteHistory(ctx context.Context) ([]string, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]string(nil), m.history...), nil
}

func (m *Memory) AppendQuote(ctx context.Context, quote string) error {
	_ = ctx
	quote = normalizeQuote(quote)
	if quote == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.history = append(m.history, quote)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
