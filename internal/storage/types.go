package storage

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": <Path> holds {"current_index": n}, <HistoryPath> one quote per line
//   - "memory": in-process only
type Config struct {
	Driver      string
	Path        string
	HistoryPath string
}

// RotationState is the persisted rotation cursor.
type RotationState struct {
	CurrentIndex int `json:"current_index"`
}

// Store is the persistence API used by the pipeline.
type Store interface {
	// LoadRotation returns the persisted state, creating {current_index: 0}
	// when none exists yet.
	LoadRotation(ctx context.Context) (RotationState, error)
	SaveRotation(ctx context.Context, st RotationState) error

	// QuoteHistory returns every recorded quote in append order.
	QuoteHistory(ctx context.Context) ([]string, error)
	AppendQuote(ctx context.Context, quote string) error

	Close() error
}
