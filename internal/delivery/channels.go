// Package delivery sends a public asset URL with its caption to each
// channel configured for a topic. Channels are independent: a failure in
// one never prevents, delays past its timeout, or undoes a send on another.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	tele "gopkg.in/telebot.v4"

	"rotapost/internal/config"
	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

// Channel is one outbound destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, assetURL, caption string) error
}

var videoExts = map[string]bool{".mp4": true, ".mov": true, ".avi": true}

// IsVideo reports whether the URL path ends in a video extension.
func IsVideo(assetURL string) bool {
	p := assetURL
	if u, err := url.Parse(assetURL); err == nil {
		p = u.Path
	}
	return videoExts[strings.ToLower(path.Ext(p))]
}

// TelegramChannel posts through the Bot API as a photo or a video.
type TelegramChannel struct {
	bot    *tele.Bot
	chatID string
}

// NewTelegramChannel builds an offline bot (no getMe round trip). apiURL
// may be empty for the public Bot API.
func NewTelegramChannel(token, chatID, apiURL string, client *http.Client) (*TelegramChannel, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, errors.New("telegram chat id is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     strings.TrimRight(apiURL, "/"),
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &TelegramChannel{bot: b, chatID: strings.TrimSpace(chatID)}, nil
}

func (t *TelegramChannel) Name() string { return "telegram" }

// Send posts the asset by URL; Telegram fetches it itself. The reply is
// only checked for an error: Telegram may answer sendVideo with an
// animation or a document, and the post is delivered all the same. The bot
// client has no per-call context, so ctx is honored by the dispatcher's
// deadline and the http.Client timeout.
func (t *TelegramChannel) Send(ctx context.Context, assetURL, caption string) error {
	const op = "delivery.telegram"
	if err := ctx.Err(); err != nil {
		return failure.New(failure.Transient, op, err)
	}
	method, field := "sendPhoto", "photo"
	if IsVideo(assetURL) {
		method, field = "sendVideo", "video"
	}
	data, err := t.bot.Raw(method, map[string]string{
		"chat_id": t.chatID,
		field:     assetURL,
		"caption": caption,
	})
	if err != nil {
		return classifyTelegram(op, data, err)
	}
	return nil
}

// classifyTelegram maps the Bot API error_code: 429 and 5xx are worth a
// later retry, other codes are not. No reply body means the request never
// got an answer.
func classifyTelegram(op string, reply []byte, err error) error {
	var e struct {
		Code int `json:"error_code"`
	}
	if len(reply) == 0 {
		return failure.New(failure.Transient, op, err)
	}
	if json.Unmarshal(reply, &e) == nil && (e.Code == http.StatusTooManyRequests || e.Code >= 500) {
		return failure.New(failure.Transient, op, err)
	}
	return failure.New(failure.Malformed, op, err)
}

// WebhookChannel posts {"<field>": "<caption>\n<url>"} as JSON.
type WebhookChannel struct {
	endpoint string
	field    string
	http     *resty.Client
}

func NewWebhookChannel(endpoint, field string, client *resty.Client) (*WebhookChannel, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("webhook endpoint is empty")
	}
	if strings.TrimSpace(field) == "" {
		field = "content"
	}
	if client == nil {
		client = resty.New()
	}
	return &WebhookChannel{endpoint: strings.TrimSpace(endpoint), field: field, http: client}, nil
}

func (w *WebhookChannel) Name() string { return "webhook" }

func (w *WebhookChannel) Send(ctx context.Context, assetURL, caption string) error {
	const op = "delivery.webhook"
	resp, err := w.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{w.field: WebhookText(caption, assetURL)}).
		Post(w.endpoint)
	if err != nil {
		return failure.New(failure.Transient, op, err)
	}
	if code := resp.StatusCode(); code == 429 || code >= 500 {
		return failure.Errorf(failure.Transient, op, "http %d", code)
	}
	if !resp.IsSuccess() {
		return failure.Errorf(failure.Malformed, op, "http %d", resp.StatusCode())
	}
	return nil
}

// WebhookText is the message body: caption, newline, URL.
func WebhookText(caption, assetURL string) string {
	return caption + "\n" + assetURL
}

// Factory builds the channels of a topic from its credentials.
type Factory struct {
	ChatID       string
	APIURL       string
	WebhookField string
	Timeout      time.Duration
	HTTP         *resty.Client
	Log          logx.Logger
}

// ChannelsFor returns the channels the topic has credentials for. A topic
// with no credentials yields no channels; a channel that cannot be built is
// logged and skipped.
func (f *Factory) ChannelsFor(topic config.Topic) []Channel {
	log := f.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	var out []Channel
	if strings.TrimSpace(topic.Token) != "" {
		timeout := f.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		tg, err := NewTelegramChannel(topic.Token, f.ChatID, f.APIURL, &http.Client{Timeout: timeout})
		if err != nil {
			log.Warn("telegram channel unavailable", logx.String("topic", topic.ID), logx.Err(err))
		} else {
			out = append(out, tg)
		}
	}
	if strings.TrimSpace(topic.Webhook) != "" {
		wh, err := NewWebhookChannel(topic.Webhook, f.WebhookField, f.HTTP)
		if err != nil {
			log.Warn("webhook channel unavailable", logx.String("topic", topic.ID), logx.Err(err))
		} else {
			out = append(out, wh)
		}
	}
	return out
}
