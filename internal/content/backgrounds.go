package content

import (
	"bytes"
	"context"
	"image"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"

	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

// BackgroundSource finds a background photo.
type BackgroundSource interface {
	Find(ctx context.Context) (image.Image, error)
}

// PixabayConfig configures the image search.
type PixabayConfig struct {
	Endpoint   string
	APIKey     string
	Query      string
	MaxPage    int
	PerPage    int
	Candidates int
	Timeout    time.Duration
}

// Pixabay searches pixabay-compatible APIs for vertical photos. A random
// result page is requested and the hits are shuffled for variety; candidates
// are downloaded in that order until one decodes.
type Pixabay struct {
	http *resty.Client
	cfg  PixabayConfig
	log  logx.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewPixabay(cfg PixabayConfig, client *resty.Client, log logx.Logger) *Pixabay {
	if client == nil {
		client = resty.New()
	}
	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 1
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 20
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pixabay{
		http: client,
		cfg:  cfg,
		log:  log,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the random source (tests).
func (p *Pixabay) SetRand(r *rand.Rand) {
	p.rngMu.Lock()
	p.rng = r
	p.rngMu.Unlock()
}

type pixabayHit struct {
	LargeImageURL string `json:"largeImageURL"`
	WebformatURL  string `json:"webformatURL"`
}

type pixabayResult struct {
	Total int          `json:"total"`
	Hits  []pixabayHit `json:"hits"`
}

func (p *Pixabay) Find(ctx context.Context) (image.Image, error) {
	const op = "backgrounds.find"
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, failure.Errorf(failure.ResourceUnavailable, op, "no api key configured")
	}

	p.rngMu.Lock()
	page := 1 + p.rng.Intn(p.cfg.MaxPage)
	p.rngMu.Unlock()

	urls, err := p.search(ctx, page)
	if (err != nil || len(urls) == 0) && page > 1 {
		// Pages past the result count are rejected; the first page always exists.
		p.log.Debug("background page empty; retrying first page", logx.Int("page", page), logx.Err(err))
		urls, err = p.search(ctx, 1)
	}
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, failure.Errorf(failure.ResourceUnavailable, op, "no results for %q", p.cfg.Query)
	}

	p.rngMu.Lock()
	p.rng.Shuffle(len(urls), func(i, j int) { urls[i], urls[j] = urls[j], urls[i] })
	p.rngMu.Unlock()

	if len(urls) > p.cfg.Candidates {
		urls = urls[:p.cfg.Candidates]
	}
	var lastErr error
	for i, u := range urls {
		img, err := p.download(ctx, u)
		if err == nil {
			return img, nil
		}
		lastErr = err
		p.log.Debug("background candidate rejected", logx.Int("candidate", i), logx.Err(err))
	}
	return nil, lastErr
}

func (p *Pixabay) search(ctx context.Context, page int) ([]string, error) {
	const op = "backgrounds.search"
	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	var out pixabayResult
	resp, err := p.http.R().
		SetContext(cctx).
		SetQueryParams(map[string]string{
			"key":         p.cfg.APIKey,
			"q":           p.cfg.Query,
			"image_type":  "photo",
			"orientation": "vertical",
			"safesearch":  "true",
			"page":        strconv.Itoa(page),
			"per_page":    strconv.Itoa(p.cfg.PerPage),
		}).
		SetResult(&out).
		Get(p.cfg.Endpoint)
	if err != nil {
		if resp != nil && resp.IsSuccess() {
			return nil, failure.New(failure.Malformed, op, err)
		}
		return nil, failure.New(failure.Transient, op, err)
	}
	if err := classifyStatus(op, resp); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(out.Hits))
	for _, h := range out.Hits {
		u := strings.TrimSpace(h.LargeImageURL)
		if u == "" {
			u = strings.TrimSpace(h.WebformatURL)
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (p *Pixabay) download(ctx context.Context, u string) (image.Image, error) {
	const op = "backgrounds.download"
	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.http.R().SetContext(cctx).Get(u)
	if err != nil {
		return nil, failure.New(failure.Transient, op, err)
	}
	if err := classifyStatus(op, resp); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(resp.Body()), imaging.AutoOrientation(true))
	if err != nil {
		return nil, failure.New(failure.Malformed, op, err)
	}
	return img, nil
}
