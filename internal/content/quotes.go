package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

// Quote is one fetched quote.
type Quote struct {
	Text   string
	Author string
}

// QuoteSource returns one quote per call.
type QuoteSource interface {
	Fetch(ctx context.Context) (Quote, error)
}

// ZenQuotes reads the zenquotes.io "random" endpoint, which answers with a
// one-element array: [{"q": "...", "a": "..."}].
type ZenQuotes struct {
	http     *resty.Client
	endpoint string
	timeout  time.Duration
}

func NewZenQuotes(client *resty.Client, endpoint string, timeout time.Duration) *ZenQuotes {
	if client == nil {
		client = resty.New()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ZenQuotes{http: client, endpoint: endpoint, timeout: timeout}
}

type zenQuote struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// zenquotes answers rate-limited clients with a quote attributed to itself.
const zenRateLimitAuthor = "zenquotes.io"

func (z *ZenQuotes) Fetch(ctx context.Context) (Quote, error) {
	const op = "quotes.fetch"
	cctx, cancel := context.WithTimeout(ctx, z.timeout)
	defer cancel()

	var out []zenQuote
	resp, err := z.http.R().SetContext(cctx).SetResult(&out).Get(z.endpoint)
	if err != nil {
		if resp != nil && resp.IsSuccess() {
			return Quote{}, failure.New(failure.Malformed, op, err)
		}
		return Quote{}, failure.New(failure.Transient, op, err)
	}
	if err := classifyStatus(op, resp); err != nil {
		return Quote{}, err
	}
	if len(out) == 0 {
		return Quote{}, failure.Errorf(failure.Malformed, op, "empty quote list")
	}
	q := Quote{Text: strings.TrimSpace(out[0].Q), Author: strings.TrimSpace(out[0].A)}
	if q.Text == "" {
		return Quote{}, failure.Errorf(failure.Malformed, op, "empty quote text")
	}
	if strings.EqualFold(q.Author, zenRateLimitAuthor) {
		return Quote{}, failure.Errorf(failure.Transient, op, "rate limited: %s", q.Text)
	}
	return q, nil
}

// QuotePicker avoids quotes already in the history, best-effort: after
// Attempts fetches that all repeat, the last fetched quote is used anyway.
type QuotePicker struct {
	Source   QuoteSource
	Attempts int
	Log      logx.Logger
}

var ErrNoQuote = errors.New("no quote fetched")

func (p *QuotePicker) Pick(ctx context.Context, history []string) (Quote, error) {
	log := p.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	used := make(map[string]struct{}, len(history))
	for _, h := range history {
		used[strings.TrimSpace(h)] = struct{}{}
	}

	var (
		last    Quote
		got     bool
		lastErr error
	)
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return Quote{}, failure.New(failure.Transient, "quotes.pick", err)
		}
		q, err := p.Source.Fetch(ctx)
		if err != nil {
			lastErr = err
			log.Debug("quote fetch failed", logx.Int("attempt", i), logx.Err(err))
			continue
		}
		if _, seen := used[q.Text]; !seen {
			return q, nil
		}
		last, got = q, true
		log.Debug("quote already used", logx.Int("attempt", i))
	}
	if got {
		log.Warn("no unused quote found; reusing", logx.Int("attempts", attempts))
		return last, nil
	}
	if lastErr == nil {
		lastErr = ErrNoQuote
	}
	return Quote{}, lastErr
}

// classifyStatus maps HTTP status codes onto failure kinds: 429 and 5xx are
// transient, anything else outside 2xx is malformed.
func classifyStatus(op string, resp *resty.Response) error {
	if resp == nil || resp.IsSuccess() {
		return nil
	}
	code := resp.StatusCode()
	if code == 429 || code >= 500 {
		return failure.Errorf(failure.Transient, op, "http %d", code)
	}
	return failure.Errorf(failure.Malformed, op, "http %d", code)
}
