package config

// Config is the root configuration document.
//
// It is loaded once at process start (see ConfigManager.Load) and treated as
// immutable afterwards: components receive mapped, typed copies of the
// sections they need and never read the environment themselves.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging     LoggingConfig     `json:"logging"`
	State       StateConfig       `json:"state"`
	Telegram    TelegramConfig    `json:"telegram"`
	Delivery    DeliveryConfig    `json:"delivery"`
	Upload      UploadConfig      `json:"upload"`
	Quotes      QuotesConfig      `json:"quotes"`
	Backgrounds BackgroundsConfig `json:"backgrounds"`
	Render      RenderConfig      `json:"render"`
	Schedule    ScheduleConfig    `json:"schedule"`

	// Topics is the ordered rotation. Order is significant: the persisted
	// rotation index points into this list.
	Topics []Topic `json:"topics"`
}

// Topic kinds.
const (
	KindFolder    = "folder"
	KindGenerated = "generated"
)

// Topic is one entry of the rotation.
//
// Example (yaml):
//
//	topics:
//	  - id: nature
//	    kind: folder
//	    folder: content/nature
//	    telegram_token: ${TELEGRAM_TOKEN_NATURE}
//	    webhook: ${WEBHOOK_NATURE}
//	    caption: "Nature Vibes. #Nature"
type Topic struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Folder  string `json:"folder,omitempty"`
	Token   string `json:"telegram_token,omitempty"` // do not log
	Webhook string `json:"webhook,omitempty"`        // do not log
	Caption string `json:"caption,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StateConfig controls where rotation state and quote history live.
//
// Driver values:
//   - "file": JSON state file + plain-text history (default)
//   - "memory": nothing survives the process (dry runs)
type StateConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`         // default: "./state.json"
	HistoryPath string `json:"history_path,omitempty"` // default: "./used_quotes.txt"
}

type TelegramConfig struct {
	// ChatID is shared by all topics; numeric id or "@channelname".
	ChatID string `json:"chat_id"`
	// APIURL overrides the Bot API base URL (default: https://api.telegram.org).
	APIURL string `json:"api_url,omitempty"`
}

// DeliveryConfig controls channel sends.
//
// Defaults:
//   - timeout: "15s"
//   - rate_per_sec: 1
type DeliveryConfig struct {
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	// WebhookField is the JSON key carrying the message text (default: "content").
	WebhookField string `json:"webhook_field,omitempty"`
}

// UploadConfig controls the file host upload.
//
// Defaults:
//   - endpoint: "https://catbox.moe/user/api.php"
//   - attempts: 3 (bounded to 1..5)
//   - timeout: "30s" (first attempt)
//   - timeout_step: "30s" (added per further attempt)
//   - delay: "5s" (between attempts)
type UploadConfig struct {
	Endpoint    string `json:"endpoint,omitempty"`
	UserHash    string `json:"userhash,omitempty"` // do not log
	Attempts    int    `json:"attempts,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
	TimeoutStep string `json:"timeout_step,omitempty"`
	Delay       string `json:"delay,omitempty"`
}

// QuotesConfig controls the quote source for generated topics.
type QuotesConfig struct {
	Endpoint string `json:"endpoint,omitempty"` // default: "https://zenquotes.io/api/random"
	Attempts int    `json:"attempts,omitempty"` // default: 3
	Timeout  string `json:"timeout,omitempty"`  // default: "10s"
	Author   string `json:"author,omitempty"`   // default: "- Lucas Hart"
}

// BackgroundsConfig controls the stock image search for generated topics.
type BackgroundsConfig struct {
	Endpoint   string `json:"endpoint,omitempty"` // default: "https://pixabay.com/api/"
	APIKey     string `json:"api_key,omitempty"`  // do not log
	Query      string `json:"query,omitempty"`    // default: "nature dark"
	MaxPage    int    `json:"max_page,omitempty"` // default: 5
	PerPage    int    `json:"per_page,omitempty"` // default: 20
	Candidates int    `json:"candidates,omitempty"`
	Timeout    string `json:"timeout,omitempty"` // default: "20s"
}

// RenderConfig controls quote image synthesis.
type RenderConfig struct {
	Width        int    `json:"width,omitempty"`         // default: 1080
	Height       int    `json:"height,omitempty"`        // default: 1350
	OverlayAlpha int    `json:"overlay_alpha,omitempty"` // default: 120
	Quality      int    `json:"quality,omitempty"`       // default: 85
	FontPath     string `json:"font_path,omitempty"`
	FontURL      string `json:"font_url,omitempty"`
	FontCacheDir string `json:"font_cache_dir,omitempty"` // default: os.TempDir()/rotapost
	WorkDir      string `json:"work_dir,omitempty"`       // default: os.TempDir()
}

// ScheduleConfig is only used by the daemon command.
type ScheduleConfig struct {
	// Spec is a cron expression, an HH:MM interval or a Go duration.
	Spec     string `json:"spec,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}
