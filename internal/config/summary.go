package config

import (
	"strings"

	logx "rotapost/pkg/logx"
)

// Summarize returns the topic ids in rotation order and safe structured
// attrs for logging. Secrets (tokens, webhook URLs, api keys) are reported
// only as configured/not configured.
func Summarize(cfg *Config) ([]string, []logx.Field) {
	if cfg == nil {
		return nil, nil
	}
	ids := make([]string, 0, len(cfg.Topics))
	attrs := make([]logx.Field, 0, 8+2*len(cfg.Topics))
	for _, t := range cfg.Topics {
		ids = append(ids, t.ID)
		attrs = append(attrs,
			logx.Bool("topic."+t.ID+".telegram", strings.TrimSpace(t.Token) != ""),
			logx.Bool("topic."+t.ID+".webhook", strings.TrimSpace(t.Webhook) != ""),
		)
	}
	attrs = append(attrs,
		logx.String("topics", strings.Join(ids, ",")),
		logx.String("state.driver", cfg.State.Driver),
		logx.String("state.path", cfg.State.Path),
		logx.String("upload.endpoint", cfg.Upload.Endpoint),
		logx.Int("upload.attempts", cfg.Upload.Attempts),
		logx.Bool("telegram.chat_id", strings.TrimSpace(cfg.Telegram.ChatID) != ""),
		logx.Bool("backgrounds.api_key", strings.TrimSpace(cfg.Backgrounds.APIKey) != ""),
		logx.String("schedule.spec", strings.TrimSpace(cfg.Schedule.Spec)),
	)
	return ids, attrs
}
