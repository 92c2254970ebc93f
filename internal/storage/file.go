package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "rotapost/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <Path>        rotation state, {"current_index": n}
//   - <HistoryPath> quote history, one quote per line (append-only)
//
// State writes go through a temp file + rename so a crash never leaves a
// truncated state file behind.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	closed bool

	statePath   string
	historyPath string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	statePath := strings.TrimSpace(cfg.Path)
	if statePath == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	historyPath := strings.TrimSpace(cfg.HistoryPath)
	if historyPath == "" {
		historyPath = filepath.Join(filepath.Dir(statePath), "used_quotes.txt")
	}

	for _, p := range []string{statePath, historyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
	}

	return &fileStore{
		log:         log,
		statePath:   statePath,
		historyPath: historyPath,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) LoadRotation(ctx context.Context) (RotationState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return RotationState{}, ErrClosed
	}

	b, err := os.ReadFile(s.statePath)
	if errors.Is(err, fs.ErrNotExist) {
		st := RotationState{}
		if err := s.writeStateLocked(st); err != nil {
			return RotationState{}, err
		}
		s.log.Info("rotation state initialized", logx.String("path", s.statePath))
		return st, nil
	}
	if err != nil {
		return RotationState{}, err
	}

	var st RotationState
	if err := json.Unmarshal(b, &st); err != nil {
		return RotationState{}, fmt.Errorf("decode %s: %w", s.statePath, err)
	}
	if st.CurrentIndex < 0 {
		return RotationState{}, fmt.Errorf("decode %s: current_index must be >= 0, got %d", s.statePath, st.CurrentIndex)
	}
	return st, nil
}

func (s *fileStore) SaveRotation(ctx context.Context, st RotationState) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.writeStateLocked(st)
}

func (s *fileStore) writeStateLocked(st RotationState) error {
	tmp := s.statePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(st); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.statePath)
}

func (s *fileStore) QuoteHistory(ctx context.Context) ([]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	f, err := os.Open(s.historyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func (s *fileStore) AppendQuote(ctx context.Context, quote string) error {
	_ = ctx
	quote = normalizeQuote(quote)
	if quote == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	f, err := os.OpenFile(s.historyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(quote + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// normalizeQuote keeps the one-quote-per-line format intact.
func normalizeQuote(q string) string {
	q = strings.ReplaceAll(q, "\r", " ")
	q = strings.ReplaceAll(q, "\n", " ")
	return strings.TrimSpace(q)
}
