package content

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"rotapost/internal/config"
	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

// Origin says where a staged asset came from.
type Origin int

const (
	FromFolder Origin = iota
	Synthesized
)

func (o Origin) String() string {
	if o == Synthesized {
		return "synthesized"
	}
	return "folder"
}

// StagedAsset is a local file ready for upload. Folder assets are removed
// from their folder once uploaded; synthesized assets are always removed
// after the upload attempt.
type StagedAsset struct {
	Path    string
	Origin  Origin
	Quote   string
	TopicID string
}

// Renderer draws a quote card and writes it to path. bg may be nil.
type Renderer interface {
	Render(ctx context.Context, quote, author string, bg image.Image, path string) error
}

// History is the quote log used to avoid repeats.
type History interface {
	QuoteHistory(ctx context.Context) ([]string, error)
	AppendQuote(ctx context.Context, quote string) error
}

// Resolver turns a topic into a staged asset.
type Resolver struct {
	WorkDir     string
	Quotes      *QuotePicker
	Backgrounds BackgroundSource
	Renderer    Renderer
	History     History
	Author      string
	Log         logx.Logger
}

var ErrUnknownKind = errors.New("unknown topic kind")

// Resolve stages the next asset for topic. A topic with nothing to post
// yields a failure.ResourceUnavailable error.
func (r *Resolver) Resolve(ctx context.Context, topic config.Topic) (*StagedAsset, error) {
	switch topic.Kind {
	case config.KindFolder:
		p, err := NextInFolder(topic.Folder)
		if err != nil {
			return nil, err
		}
		return &StagedAsset{Path: p, Origin: FromFolder, TopicID: topic.ID}, nil
	case config.KindGenerated:
		return r.synthesize(ctx, topic)
	default:
		return nil, failure.New(failure.Malformed, "content.resolve", fmt.Errorf("%w: %q", ErrUnknownKind, topic.Kind))
	}
}

// NextInFolder returns the first eligible file of dir in byte-wise name
// order. Dot files and directories are skipped.
func NextInFolder(dir string) (string, error) {
	const op = "content.folder"
	if strings.TrimSpace(dir) == "" {
		return "", failure.Errorf(failure.ResourceUnavailable, op, "no folder configured")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", failure.Unavailable(op, err)
		}
		return "", failure.New(failure.LocalIO, op, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || e.IsDir() {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", failure.Errorf(failure.ResourceUnavailable, op, "%s: no eligible files", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

func (r *Resolver) synthesize(ctx context.Context, topic config.Topic) (*StagedAsset, error) {
	log := r.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("topic", topic.ID))

	if r.Quotes == nil || r.Renderer == nil {
		return nil, failure.Errorf(failure.ResourceUnavailable, "content.synthesize", "generator not configured")
	}

	var history []string
	if r.History != nil {
		h, err := r.History.QuoteHistory(ctx)
		if err != nil {
			log.Warn("quote history unreadable; repeats possible", logx.Err(err))
		}
		history = h
	}

	q, err := r.Quotes.Pick(ctx, history)
	if err != nil {
		return nil, err
	}

	var bg image.Image
	if r.Backgrounds != nil {
		img, err := r.Backgrounds.Find(ctx)
		switch {
		case err == nil:
			bg = img
		case failure.KindOf(err) == failure.ResourceUnavailable:
			log.Info("no background photo; using flat canvas", logx.Err(err))
		default:
			log.Warn("background search failed; using flat canvas", logx.Err(err))
		}
	}

	dir := r.WorkDir
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, failure.New(failure.LocalIO, "content.synthesize", err)
	}
	out := filepath.Join(dir, fmt.Sprintf("%s-%s.jpg", topic.ID, uuid.NewString()))

	text := `"` + q.Text + `"`
	if err := r.Renderer.Render(ctx, text, r.Author, bg, out); err != nil {
		_ = os.Remove(out)
		return nil, failure.New(failure.LocalIO, "content.render", err)
	}

	if r.History != nil {
		if err := r.History.AppendQuote(ctx, q.Text); err != nil {
			log.Warn("quote history append failed", logx.Err(err))
		}
	}
	log.Debug("quote card rendered", logx.String("path", out))
	return &StagedAsset{Path: out, Origin: Synthesized, Quote: q.Text, TopicID: topic.ID}, nil
}
