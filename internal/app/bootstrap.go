package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"rotapost/internal/config"
	"rotapost/internal/content"
	"rotapost/internal/delivery"
	"rotapost/internal/render"
	"rotapost/internal/upload"
	logx "rotapost/pkg/logx"
)

type Config = config.Config

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	return config.ParseDurationOrDefault(path, raw, def)
}

func mapLogConfig(cfg *Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapUploadConfig(cfg *Config) (upload.Config, error) {
	uc := cfg.Upload
	timeout, err := parseDurationOrDefault("upload.timeout", uc.Timeout, 30*time.Second)
	if err != nil {
		return upload.Config{}, err
	}
	step, err := parseDurationOrDefault("upload.timeout_step", uc.TimeoutStep, 30*time.Second)
	if err != nil {
		return upload.Config{}, err
	}
	delay, err := parseDurationOrDefault("upload.delay", uc.Delay, 5*time.Second)
	if err != nil {
		return upload.Config{}, err
	}
	return upload.Config{
		Endpoint:    uc.Endpoint,
		UserHash:    uc.UserHash,
		Attempts:    uc.Attempts,
		Timeout:     timeout,
		TimeoutStep: step,
		Delay:       delay,
	}, nil
}

func mapDeliveryConfig(cfg *Config) (delivery.Config, error) {
	timeout, err := parseDurationOrDefault("delivery.timeout", cfg.Delivery.Timeout, 15*time.Second)
	if err != nil {
		return delivery.Config{}, err
	}
	return delivery.Config{Timeout: timeout, RatePerSec: cfg.Delivery.RatePerSec}, nil
}

func mapPixabayConfig(cfg *Config) (content.PixabayConfig, error) {
	bc := cfg.Backgrounds
	timeout, err := parseDurationOrDefault("backgrounds.timeout", bc.Timeout, 20*time.Second)
	if err != nil {
		return content.PixabayConfig{}, err
	}
	return content.PixabayConfig{
		Endpoint:   bc.Endpoint,
		APIKey:     bc.APIKey,
		Query:      bc.Query,
		MaxPage:    bc.MaxPage,
		PerPage:    bc.PerPage,
		Candidates: bc.Candidates,
		Timeout:    timeout,
	}, nil
}

func mapRenderConfig(cfg *Config) render.Config {
	rc := render.DefaultConfig()
	rc.Width = cfg.Render.Width
	rc.Height = cfg.Render.Height
	rc.OverlayAlpha = uint8(min(max(cfg.Render.OverlayAlpha, 0), 255))
	rc.Quality = cfg.Render.Quality
	return rc
}

func mapFontConfig(cfg *Config) render.FontConfig {
	cache := strings.TrimSpace(cfg.Render.FontCacheDir)
	if cache == "" {
		cache = filepath.Join(os.TempDir(), "rotapost")
	}
	return render.FontConfig{
		Path:     cfg.Render.FontPath,
		URL:      cfg.Render.FontURL,
		CacheDir: cache,
	}
}

func mapFactory(cfg *Config, dc delivery.Config) delivery.Factory {
	return delivery.Factory{
		ChatID:       cfg.Telegram.ChatID,
		APIURL:       cfg.Telegram.APIURL,
		WebhookField: cfg.Delivery.WebhookField,
		Timeout:      dc.Timeout,
	}
}
