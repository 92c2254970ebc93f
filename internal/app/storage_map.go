package app

import (
	"fmt"
	"strings"

	"rotapost/internal/storage"
)

func mapStorageConfig(cfg *Config) (storage.Config, error) {
	sc := cfg.State
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "file":
		path := strings.TrimSpace(sc.Path)
		if path == "" {
			return storage.Config{}, fmt.Errorf("state.path is required when state.driver=file")
		}
		return storage.Config{Driver: "file", Path: path, HistoryPath: strings.TrimSpace(sc.HistoryPath)}, nil
	case "memory":
		return storage.Config{Driver: "memory"}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown state.driver: %s", sc.Driver)
	}
}
