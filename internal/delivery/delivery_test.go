package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"

	"rotapost/internal/config"
	"rotapost/internal/eventbus"
	"rotapost/internal/failure"
	logx "rotapost/pkg/logx"
)

type botCall struct {
	Path   string
	Params map[string]any
}

const (
	photoReply = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-100,"type":"channel"},` +
		`"photo":[{"file_id":"p1","file_unique_id":"u1","width":90,"height":90}]}}`
	videoReply = `{"ok":true,"result":{"message_id":2,"date":0,"chat":{"id":-100,"type":"channel"},` +
		`"video":{"file_id":"v1","file_unique_id":"u2","width":640,"height":360,"duration":5}}}`
)

// fakeBotAPI records each Bot API call and answers with reply(method).
func fakeBotAPI(t *testing.T, reply func(method string) (int, string)) (*httptest.Server, func() []botCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []botCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)
		mu.Lock()
		calls = append(calls, botCall{Path: r.URL.Path, Params: params})
		mu.Unlock()
		code, body := reply(path.Base(r.URL.Path))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	return srv, func() []botCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]botCall(nil), calls...)
	}
}

func mediaReply(method string) (int, string) {
	if method == "sendVideo" {
		return http.StatusOK, videoReply
	}
	return http.StatusOK, photoReply
}

func TestTelegramPhotoAndVideo(t *testing.T) {
	srv, calls := fakeBotAPI(t, mediaReply)
	defer srv.Close()

	ch, err := NewTelegramChannel("123:abc", "@mychannel", srv.URL, nil)
	if err != nil {
		t.Fatalf("NewTelegramChannel: %v", err)
	}
	ctx := context.Background()
	if err := ch.Send(ctx, "https://files.example/a.jpg", "Nature Vibes"); err != nil {
		t.Fatalf("send photo: %v", err)
	}
	if err := ch.Send(ctx, "https://files.example/b.MP4", "clip"); err != nil {
		t.Fatalf("send video: %v", err)
	}

	got := calls()
	if len(got) != 2 {
		t.Fatalf("calls = %d, want 2", len(got))
	}
	if got[0].Path != "/bot123:abc/sendPhoto" || got[1].Path != "/bot123:abc/sendVideo" {
		t.Fatalf("paths = %q, %q", got[0].Path, got[1].Path)
	}
	if got[0].Params["chat_id"] != "@mychannel" || got[0].Params["caption"] != "Nature Vibes" {
		t.Fatalf("params = %v", got[0].Params)
	}
	if got[0].Params["photo"] != "https://files.example/a.jpg" {
		t.Fatalf("photo = %v", got[0].Params["photo"])
	}
	if got[1].Params["video"] != "https://files.example/b.MP4" {
		t.Fatalf("video = %v", got[1].Params["video"])
	}
}

func TestTelegramReplyWithoutMediaIsDelivered(t *testing.T) {
	// Telegram may turn a video into an animation or a document.
	srv, _ := fakeBotAPI(t, func(string) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":3,"date":0,"chat":{"id":-100,"type":"channel"},` +
			`"animation":{"file_id":"a1","file_unique_id":"u3","width":1,"height":1,"duration":1}}}`
	})
	defer srv.Close()

	ch, err := NewTelegramChannel("123:abc", "-100123", srv.URL, nil)
	if err != nil {
		t.Fatalf("NewTelegramChannel: %v", err)
	}
	rep := newTestDispatcher(nil).Dispatch(context.Background(), []Channel{ch}, "https://files.example/c.mov", "clip")
	if rep.Delivered() != 1 || rep.Failed() != 0 {
		t.Fatalf("report = %+v", rep.Results)
	}
}

func TestTelegramErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   failure.Kind
	}{
		{http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, failure.Malformed},
		{http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, failure.Malformed},
		{http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5","parameters":{"retry_after":5}}`, failure.Transient},
		{http.StatusBadGateway, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`, failure.Transient},
	}
	for _, tc := range cases {
		srv, _ := fakeBotAPI(t, func(string) (int, string) { return tc.status, tc.body })
		ch, err := NewTelegramChannel("123:abc", "-100123", srv.URL, nil)
		if err != nil {
			t.Fatalf("NewTelegramChannel: %v", err)
		}
		err = ch.Send(context.Background(), "https://files.example/a.jpg", "c")
		srv.Close()
		if failure.KindOf(err) != tc.want {
			t.Fatalf("error_code in %s: err = %v, want %v", tc.body, err, tc.want)
		}
	}

	// Nothing listening: no reply at all.
	srv, _ := fakeBotAPI(t, mediaReply)
	url := srv.URL
	srv.Close()
	ch, _ := NewTelegramChannel("123:abc", "-100123", url, nil)
	if err := ch.Send(context.Background(), "https://files.example/a.jpg", "c"); failure.KindOf(err) != failure.Transient {
		t.Fatalf("unreachable API: err = %v, want transient", err)
	}
}

func TestIsVideo(t *testing.T) {
	cases := map[string]bool{
		"https://h/x.mp4":         true,
		"https://h/x.MOV":         true,
		"https://h/x.avi?dl=1":    true,
		"https://h/x.jpg":         false,
		"https://h/mp4":           false,
		"https://h/x.mp4.png":     false,
		"https://h/dir.mp4/x.gif": false,
	}
	for in, want := range cases {
		if got := IsVideo(in); got != want {
			t.Fatalf("IsVideo(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWebhookBody(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh, err := NewWebhookChannel(srv.URL, "", resty.New())
	if err != nil {
		t.Fatalf("NewWebhookChannel: %v", err)
	}
	if err := wh.Send(context.Background(), "https://files.example/a.jpg", "Daily Motivation"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(body) != 1 || body["content"] != "Daily Motivation\nhttps://files.example/a.jpg" {
		t.Fatalf("body = %v", body)
	}
}

func TestWebhookStatusKinds(t *testing.T) {
	for code, want := range map[int]failure.Kind{500: failure.Transient, 429: failure.Transient, 404: failure.Malformed} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		wh, _ := NewWebhookChannel(srv.URL, "text", resty.New())
		err := wh.Send(context.Background(), "u", "c")
		srv.Close()
		if failure.KindOf(err) != want {
			t.Fatalf("status %d: err = %v, want %v", code, err, want)
		}
	}
}

type stubChannel struct {
	name  string
	err   error
	panic bool
	block bool
	sent  int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, assetURL, caption string) error {
	s.sent++
	if s.panic {
		panic("boom")
	}
	if s.block {
		// Ignores ctx on purpose, like a client without context support.
		time.Sleep(2 * time.Second)
		return nil
	}
	return s.err
}

func newTestDispatcher(bus eventbus.Bus) *Dispatcher {
	return NewDispatcher(Config{Timeout: 100 * time.Millisecond, RatePerSec: 100}, logx.Nop(), bus)
}

func TestDispatchChannelIndependence(t *testing.T) {
	cases := []struct {
		name  string
		first *stubChannel
	}{
		{"error", &stubChannel{name: "telegram", err: errors.New("bad token")}},
		{"panic", &stubChannel{name: "telegram", panic: true}},
		{"timeout", &stubChannel{name: "telegram", block: true}},
	}
	for _, tc := range cases {
		second := &stubChannel{name: "webhook"}
		rep := newTestDispatcher(nil).Dispatch(context.Background(), []Channel{tc.first, second}, "https://u/x.jpg", "cap")
		if second.sent != 1 {
			t.Fatalf("%s: second channel not attempted", tc.name)
		}
		if rep.Delivered() != 1 || rep.Failed() != 1 {
			t.Fatalf("%s: report = %+v", tc.name, rep)
		}
		if rep.Results[0].Err == nil || rep.Results[1].Err != nil {
			t.Fatalf("%s: results = %+v", tc.name, rep.Results)
		}
	}

	// And the other way round.
	first := &stubChannel{name: "telegram"}
	second := &stubChannel{name: "webhook", err: errors.New("gone")}
	rep := newTestDispatcher(nil).Dispatch(context.Background(), []Channel{first, second}, "u", "c")
	if first.sent != 1 || rep.Delivered() != 1 || rep.Failed() != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestDispatchTimeoutIsTransient(t *testing.T) {
	rep := newTestDispatcher(nil).Dispatch(context.Background(), []Channel{&stubChannel{name: "slow", block: true}}, "u", "c")
	if failure.KindOf(rep.Results[0].Err) != failure.Transient {
		t.Fatalf("err = %v, want transient", rep.Results[0].Err)
	}
}

func TestDispatchNoChannels(t *testing.T) {
	rep := newTestDispatcher(nil).Dispatch(context.Background(), nil, "u", "c")
	if len(rep.Results) != 0 || rep.Delivered() != 0 || rep.Failed() != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestDispatchPublishesEvents(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	newTestDispatcher(bus).Dispatch(context.Background(), []Channel{
		&stubChannel{name: "telegram"},
		&stubChannel{name: "webhook", err: errors.New("nope")},
	}, "https://u/x.jpg", "c")

	first, second := <-ch, <-ch
	if first.Type != eventbus.DeliverySent || second.Type != eventbus.DeliveryFailed {
		t.Fatalf("events = %s, %s", first.Type, second.Type)
	}
	d := second.Data.(eventbus.Delivery)
	if d.Channel != "webhook" || !strings.Contains(d.Error, "nope") {
		t.Fatalf("delivery = %+v", d)
	}
}

func TestFactoryChannelsFor(t *testing.T) {
	f := &Factory{ChatID: "-100123", Timeout: time.Second}
	if got := f.ChannelsFor(config.Topic{ID: "bare"}); len(got) != 0 {
		t.Fatalf("bare topic channels = %d", len(got))
	}
	got := f.ChannelsFor(config.Topic{ID: "full", Token: "1:x", Webhook: "https://hooks.example/a"})
	if len(got) != 2 || got[0].Name() != "telegram" || got[1].Name() != "webhook" {
		t.Fatalf("channels = %v", got)
	}

	// No chat id: the telegram channel is skipped, the webhook stays.
	got = (&Factory{}).ChannelsFor(config.Topic{ID: "t", Token: "1:x", Webhook: "https://hooks.example/a"})
	if len(got) != 1 || got[0].Name() != "webhook" {
		t.Fatalf("channels = %v", got)
	}
}

func TestDispatchBothChannelsAtDefaultRate(t *testing.T) {
	d := NewDispatcher(Config{Timeout: time.Second, RatePerSec: 1}, logx.Nop(), nil)
	start := time.Now()
	rep := d.Dispatch(context.Background(), []Channel{&stubChannel{name: "telegram"}, &stubChannel{name: "webhook"}}, "u", "c")
	if rep.Delivered() != 2 {
		t.Fatalf("report = %+v", rep.Results)
	}
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Fatalf("second channel waited on the limiter: took %s", took)
	}
}
