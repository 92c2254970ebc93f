package config

import "strings"

// defaultDocument is used when no config file is given. Secrets come from
// the environment (or a .env file).
const defaultDocument = `
logging:
  level: info
  console: true
state:
  driver: file
  path: ./state.json
  history_path: ./used_quotes.txt
telegram:
  chat_id: "${TELEGRAM_CHAT_ID}"
backgrounds:
  api_key: "${PIXABAY_KEY}"
render:
  font_url: https://github.com/google/fonts/raw/main/apache/robotoslab/RobotoSlab-Bold.ttf
topics:
  - id: nature
    kind: folder
    folder: content/nature
    telegram_token: "${TELEGRAM_TOKEN_NATURE}"
    webhook: "${WEBHOOK_NATURE}"
    caption: "🌿 Nature Vibes. #Nature #Earth #Peace #Wilderness"
  - id: wildsnap
    kind: folder
    folder: content/wildsnap
    telegram_token: "${TELEGRAM_TOKEN_WILDSNAP}"
    webhook: "${WEBHOOK_WILDSNAP}"
    caption: "🦁 Wild World. #WildSnap #Wildlife #Animals #NaturePhotography"
  - id: motivation
    kind: generated
    telegram_token: "${TELEGRAM_TOKEN_MOTIVATION}"
    webhook: "${WEBHOOK_MOTIVATION}"
    caption: "💡 Daily Wisdom. #Motivation #LucasHart #Zen #Inspiration"
`

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.State.Driver) == "" {
		cfg.State.Driver = "file"
	}
	if strings.TrimSpace(cfg.State.Path) == "" {
		cfg.State.Path = "./state.json"
	}
	if strings.TrimSpace(cfg.State.HistoryPath) == "" {
		cfg.State.HistoryPath = "./used_quotes.txt"
	}

	if cfg.Delivery.RatePerSec <= 0 {
		cfg.Delivery.RatePerSec = 1
	}
	if strings.TrimSpace(cfg.Delivery.WebhookField) == "" {
		cfg.Delivery.WebhookField = "content"
	}

	if strings.TrimSpace(cfg.Upload.Endpoint) == "" {
		cfg.Upload.Endpoint = "https://catbox.moe/user/api.php"
	}
	if cfg.Upload.Attempts <= 0 {
		cfg.Upload.Attempts = 3
	}
	if cfg.Upload.Attempts > 5 {
		cfg.Upload.Attempts = 5
	}

	if strings.TrimSpace(cfg.Quotes.Endpoint) == "" {
		cfg.Quotes.Endpoint = "https://zenquotes.io/api/random"
	}
	if cfg.Quotes.Attempts <= 0 {
		cfg.Quotes.Attempts = 3
	}
	if strings.TrimSpace(cfg.Quotes.Author) == "" {
		cfg.Quotes.Author = "- Lucas Hart"
	}

	if strings.TrimSpace(cfg.Backgrounds.Endpoint) == "" {
		cfg.Backgrounds.Endpoint = "https://pixabay.com/api/"
	}
	if strings.TrimSpace(cfg.Backgrounds.Query) == "" {
		cfg.Backgrounds.Query = "nature dark"
	}
	if cfg.Backgrounds.MaxPage <= 0 {
		cfg.Backgrounds.MaxPage = 5
	}
	if cfg.Backgrounds.PerPage <= 0 {
		cfg.Backgrounds.PerPage = 20
	}
	if cfg.Backgrounds.Candidates <= 0 {
		cfg.Backgrounds.Candidates = 5
	}

	if cfg.Render.Width <= 0 {
		cfg.Render.Width = 1080
	}
	if cfg.Render.Height <= 0 {
		cfg.Render.Height = 1350
	}
	if cfg.Render.OverlayAlpha <= 0 {
		cfg.Render.OverlayAlpha = 120
	}
	if cfg.Render.OverlayAlpha > 255 {
		cfg.Render.OverlayAlpha = 255
	}
	if cfg.Render.Quality <= 0 || cfg.Render.Quality > 100 {
		cfg.Render.Quality = 85
	}
}
