package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"

	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

func tempFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(p, []byte("jpegdata"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestUploadMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("reqtype") != "fileupload" || r.FormValue("userhash") != "abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("fileToUpload")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) != "jpegdata" || hdr.Filename != "photo.jpg" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("https://files.example/abc123.jpg\n"))
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL, UserHash: "abc", Attempts: 1}, resty.New(), logx.Nop())
	u, err := g.Upload(context.Background(), tempFile(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if u != "https://files.example/abc123.jpg" {
		t.Fatalf("url = %q", u)
	}
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("https://files.example/x.png"))
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL, Attempts: 3}, resty.New(), logx.Nop())
	u, err := g.Upload(context.Background(), tempFile(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if u != "https://files.example/x.png" || hits.Load() != 3 {
		t.Fatalf("url=%q hits=%d", u, hits.Load())
	}
}

func TestUploadMalformedBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL, Attempts: 2}, resty.New(), logx.Nop())
	_, err := g.Upload(context.Background(), tempFile(t))
	if failure.KindOf(err) != failure.Malformed {
		t.Fatalf("err = %v, want malformed", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("hits = %d, want 2", hits.Load())
	}
}

func TestUploadTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := New(Config{Endpoint: srv.URL, Attempts: 1, Timeout: 50 * time.Millisecond}, resty.New(), logx.Nop())
	_, err := g.Upload(context.Background(), tempFile(t))
	if failure.KindOf(err) != failure.Transient {
		t.Fatalf("err = %v, want transient", err)
	}
}

func TestUploadMissingFile(t *testing.T) {
	g := New(Config{Endpoint: "http://127.0.0.1:1"}, nil, logx.Nop())
	_, err := g.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"))
	if failure.KindOf(err) != failure.LocalIO {
		t.Fatalf("err = %v, want local io", err)
	}
}

func TestUploadCancelledDuringDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	g := New(Config{Endpoint: srv.URL, Attempts: 5, Delay: time.Hour}, resty.New(), logx.Nop())
	time.AfterFunc(50*time.Millisecond, cancel)

	path := tempFile(t)
	done := make(chan error, 1)
	go func() {
		_, err := g.Upload(ctx, path)
		done <- err
	}()
	select {
	case err := <-done:
		if failure.KindOf(err) != failure.Transient {
			t.Fatalf("err = %v, want transient", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("upload did not stop on cancellation")
	}
}

func TestAttemptTimeoutGrows(t *testing.T) {
	g := New(Config{Timeout: 30 * time.Second, TimeoutStep: 30 * time.Second, Attempts: 9}, nil, logx.Nop())
	if g.cfg.Attempts != MaxAttempts {
		t.Fatalf("attempts = %d, want capped at %d", g.cfg.Attempts, MaxAttempts)
	}
	want := []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}
	for i, w := range want {
		if got := g.AttemptTimeout(i + 1); got != w {
			t.Fatalf("attempt %d timeout = %v, want %v", i+1, got, w)
		}
	}
}

func TestIsPublicURL(t *testing.T) {
	cases := map[string]bool{
		"https://files.example/a.jpg": true,
		"http://h/x":                  true,
		"ftp://h/x":                   false,
		"/relative/path":              false,
		"https://":                    false,
		"":                            false,
		"https://h/a b":               false,
		"error: file too large":       false,
	}
	for in, want := range cases {
		if got := IsPublicURL(in); got != want {
			t.Fatalf("IsPublicURL(%q) = %v, want %v", in, got, want)
		}
	}
}
