package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/image/font/opentype"

	logx "rotapost/pkg/logx"
)

// FontSet is a quote face, an author face and the layout constants that
// match them.
type FontSet struct {
	Quote  Face
	Author Face
	Params Params
	// Source describes where the faces came from ("path", "cache", "remote", "builtin").
	Source string
}

func (fs FontSet) Close() error {
	var errs []error
	if fs.Quote != nil {
		errs = append(errs, fs.Quote.Close())
	}
	if fs.Author != nil {
		errs = append(errs, fs.Author.Close())
	}
	return errors.Join(errs...)
}

// FallbackFonts is the built-in fixed-width font set.
func FallbackFonts() FontSet {
	return FontSet{
		Quote:  FixedFace{Scale: 4},
		Author: FixedFace{Scale: 3},
		Params: FixedParams,
		Source: "builtin",
	}
}

// TrueTypeFonts builds the 55px/40px font set from a parsed font.
func TrueTypeFonts(f *opentype.Font, source string) (FontSet, error) {
	q, err := NewTrueTypeFace(f, 55)
	if err != nil {
		return FontSet{}, err
	}
	a, err := NewTrueTypeFace(f, 40)
	if err != nil {
		_ = q.Close()
		return FontSet{}, err
	}
	return FontSet{Quote: q, Author: a, Params: TrueTypeParams, Source: source}, nil
}

// FontConfig tells the loader where to look.
type FontConfig struct {
	// Path is a local (bundled or system) font file; tried first.
	Path string
	// URL is a remote font fetched once and cached in CacheDir.
	URL      string
	CacheDir string
	Timeout  time.Duration
}

// FontLoader resolves a FontSet once per process.
type FontLoader struct {
	cfg  FontConfig
	http *resty.Client
	log  logx.Logger

	once sync.Once
	set  FontSet
}

func NewFontLoader(cfg FontConfig, client *resty.Client, log logx.Logger) *FontLoader {
	if client == nil {
		client = resty.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.CacheDir) == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "rotapost")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &FontLoader{cfg: cfg, http: client, log: log}
}

// Load returns the resolved font set. It never fails: when neither the local
// font nor the remote font can be used, the built-in fallback is returned.
func (l *FontLoader) Load(ctx context.Context) FontSet {
	l.once.Do(func() {
		l.set = l.resolve(ctx)
		l.log.Info("fonts resolved", logx.String("source", l.set.Source))
	})
	return l.set
}

func (l *FontLoader) resolve(ctx context.Context) FontSet {
	if p := strings.TrimSpace(l.cfg.Path); p != "" {
		set, err := loadFontFile(p, "path")
		if err == nil {
			return set
		}
		l.log.Warn("local font unusable", logx.String("path", p), logx.Err(err))
	}

	if u := strings.TrimSpace(l.cfg.URL); u != "" {
		cached := filepath.Join(l.cfg.CacheDir, cacheName(u))
		if set, err := loadFontFile(cached, "cache"); err == nil {
			return set
		}
		set, err := l.fetch(ctx, u, cached)
		if err == nil {
			return set
		}
		l.log.Warn("remote font unusable", logx.String("url", u), logx.Err(err))
	}

	return FallbackFonts()
}

func (l *FontLoader) fetch(ctx context.Context, rawURL, dst string) (FontSet, error) {
	cctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	resp, err := l.http.R().SetContext(cctx).Get(rawURL)
	if err != nil {
		return FontSet{}, err
	}
	if resp.IsError() {
		return FontSet{}, fmt.Errorf("font download: http %d", resp.StatusCode())
	}
	body := resp.Body()
	f, err := opentype.Parse(body)
	if err != nil {
		return FontSet{}, fmt.Errorf("parse downloaded font: %w", err)
	}

	if err := writeFileAtomic(dst, body); err != nil {
		// Still usable for this process.
		l.log.Debug("font cache write failed", logx.String("path", dst), logx.Err(err))
	}
	return TrueTypeFonts(f, "remote")
}

func loadFontFile(p, source string) (FontSet, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return FontSet{}, err
	}
	f, err := opentype.Parse(b)
	if err != nil {
		return FontSet{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return TrueTypeFonts(f, source)
}

func cacheName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "font.ttf"
}

func writeFileAtomic(p string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
