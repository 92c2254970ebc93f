// Package upload pushes staged assets to an anonymous file host and returns
// the public URL the host answers with.
package upload

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

// MaxAttempts caps Config.Attempts.
const MaxAttempts = 5

// Config controls uploads.
type Config struct {
	Endpoint string
	// UserHash attaches uploads to a host account when set.
	UserHash string
	Attempts int
	// Timeout bounds the first attempt; each further attempt gets
	// TimeoutStep more.
	Timeout     time.Duration
	TimeoutStep time.Duration
	// Delay is the pause between attempts.
	Delay time.Duration
}

// Gateway uploads files with bounded retries.
type Gateway struct {
	cfg  Config
	http *resty.Client
	log  logx.Logger
}

var ErrNotURL = errors.New("response is not an absolute http(s) url")

func New(cfg Config, client *resty.Client, log logx.Logger) *Gateway {
	if client == nil {
		client = resty.New()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Attempts > MaxAttempts {
		cfg.Attempts = MaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TimeoutStep < 0 {
		cfg.TimeoutStep = 0
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Gateway{cfg: cfg, http: client, log: log.With(logx.String("comp", "upload"))}
}

// AttemptTimeout is the deadline of the given 1-based attempt.
func (g *Gateway) AttemptTimeout(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return g.cfg.Timeout + time.Duration(attempt-1)*g.cfg.TimeoutStep
}

// Upload sends the file at path and returns its public URL. After the last
// failed attempt the error is classified Transient (network, timeout, 5xx)
// or Malformed (rejected request, unexpected body). A missing local file is
// LocalIO and is not retried.
func (g *Gateway) Upload(ctx context.Context, path string) (string, error) {
	const op = "upload"
	if _, err := os.Stat(path); err != nil {
		return "", failure.New(failure.LocalIO, op, err)
	}

	var lastErr error
	for attempt := 1; attempt <= g.cfg.Attempts; attempt++ {
		u, err := g.attempt(ctx, path, attempt)
		if err == nil {
			g.log.Info("upload ok", logx.String("file", path), logx.String("url", u), logx.Int("attempt", attempt))
			return u, nil
		}
		lastErr = err
		g.log.Warn("upload attempt failed",
			logx.Int("attempt", attempt),
			logx.Int("max", g.cfg.Attempts),
			logx.Err(err),
		)
		if ctx.Err() != nil {
			break
		}
		if attempt >= g.cfg.Attempts || g.cfg.Delay <= 0 {
			continue
		}
		t := time.NewTimer(g.cfg.Delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return "", failure.New(failure.Transient, op, ctx.Err())
		}
	}
	return "", lastErr
}

func (g *Gateway) attempt(ctx context.Context, path string, attempt int) (string, error) {
	const op = "upload"
	cctx, cancel := context.WithTimeout(ctx, g.AttemptTimeout(attempt))
	defer cancel()

	form := map[string]string{"reqtype": "fileupload"}
	if strings.TrimSpace(g.cfg.UserHash) != "" {
		form["userhash"] = g.cfg.UserHash
	}
	resp, err := g.http.R().
		SetContext(cctx).
		SetFormData(form).
		SetFile("fileToUpload", path).
		Post(g.cfg.Endpoint)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			return "", failure.New(failure.LocalIO, op, err)
		}
		return "", failure.New(failure.Transient, op, err)
	}
	if code := resp.StatusCode(); code == 429 || code >= 500 {
		return "", failure.Errorf(failure.Transient, op, "http %d: %s", code, snippet(resp.String()))
	}
	if !resp.IsSuccess() {
		return "", failure.Errorf(failure.Malformed, op, "http %d: %s", resp.StatusCode(), snippet(resp.String()))
	}
	body := strings.TrimSpace(resp.String())
	if !IsPublicURL(body) {
		return "", failure.New(failure.Malformed, op, errors.Join(ErrNotURL, errors.New(snippet(body))))
	}
	return body, nil
}

// IsPublicURL reports whether s is an absolute http or https URL with a host.
func IsPublicURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
