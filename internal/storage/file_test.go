package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logx "rotapost/pkg/logx"
)

func openTestFile(t *testing.T) (Store, string, string) {
	t.Helper()
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	historyPath := filepath.Join(dir, "used_quotes.txt")
	st, err := Open(Config{Driver: "file", Path: statePath, HistoryPath: historyPath}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, statePath, historyPath
}

func TestLoadRotationInitializes(t *testing.T) {
	st, statePath, _ := openTestFile(t)
	ctx := context.Background()

	got, err := st.LoadRotation(ctx)
	if err != nil {
		t.Fatalf("LoadRotation: %v", err)
	}
	if got.CurrentIndex != 0 {
		t.Fatalf("CurrentIndex = %d, want 0", got.CurrentIndex)
	}
	b, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("state file not created: %v", err)
	}
	if strings.TrimSpace(string(b)) != `{"current_index":0}` {
		t.Fatalf("state file = %q", string(b))
	}
}

func TestRotationRoundTrip(t *testing.T) {
	st, statePath, _ := openTestFile(t)
	ctx := context.Background()

	if err := st.SaveRotation(ctx, RotationState{CurrentIndex: 2}); err != nil {
		t.Fatalf("SaveRotation: %v", err)
	}
	got, err := st.LoadRotation(ctx)
	if err != nil {
		t.Fatalf("LoadRotation: %v", err)
	}
	if got.CurrentIndex != 2 {
		t.Fatalf("CurrentIndex = %d, want 2", got.CurrentIndex)
	}
	if _, err := os.Stat(statePath + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestLoadRotationRejectsGarbage(t *testing.T) {
	st, statePath, _ := openTestFile(t)
	if err := os.WriteFile(statePath, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := st.LoadRotation(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestQuoteHistoryAppendOnly(t *testing.T) {
	st, _, historyPath := openTestFile(t)
	ctx := context.Background()

	h, err := st.QuoteHistory(ctx)
	if err != nil || len(h) != 0 {
		t.Fatalf("empty history: %v %v", h, err)
	}
	for _, q := range []string{"Q1", "multi\nline", "  ", "Q1"} {
		if err := st.AppendQuote(ctx, q); err != nil {
			t.Fatalf("AppendQuote(%q): %v", q, err)
		}
	}
	h, err = st.QuoteHistory(ctx)
	if err != nil {
		t.Fatalf("QuoteHistory: %v", err)
	}
	want := []string{"Q1", "multi line", "Q1"}
	if strings.Join(h, "|") != strings.Join(want, "|") {
		t.Fatalf("history = %q, want %q", h, want)
	}
	b, _ := os.ReadFile(historyPath)
	if string(b) != "Q1\nmulti line\nQ1\n" {
		t.Fatalf("history file = %q", string(b))
	}
}

func TestClosedStore(t *testing.T) {
	st, _, _ := openTestFile(t)
	_ = st.Close()
	if _, err := st.LoadRotation(context.Background()); err != ErrClosed {
		t.Fatalf("LoadRotation after close = %v, want ErrClosed", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "sqlite"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryAt(RotationState{CurrentIndex: 1}, "Q1")
	ctx := context.Background()
	st, _ := m.LoadRotation(ctx)
	if st.CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d", st.CurrentIndex)
	}
	_ = m.SaveRotation(ctx, RotationState{CurrentIndex: 2})
	_ = m.AppendQuote(ctx, "Q2")
	h, _ := m.QuoteHistory(ctx)
	if len(h) != 2 || m.Saves != 1 {
		t.Fatalf("history=%v saves=%d", h, m.Saves)
	}
}
