package config

import (
	"os"
	"strings"

	logx "rotapost/pkg/logx"
)

type ConfigManager struct {
	path   string
	lookup func(string) (string, bool)
	log    logx.Logger
}

// NewConfigManager returns a manager reading path. An empty path selects
// the built-in default document.
func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{path: path, lookup: os.LookupEnv}
}

func (m *ConfigManager) SetLogger(log logx.Logger) { m.log = log }

// SetLookup replaces the environment lookup used for ${VAR} expansion.
func (m *ConfigManager) SetLookup(fn func(string) (string, bool)) {
	if fn != nil {
		m.lookup = fn
	}
}

func (m *ConfigManager) Parse() (*Config, error) {
	path := strings.TrimSpace(m.path)
	var (
		b   []byte
		err error
	)
	if path == "" {
		path = "default.yaml"
		b = []byte(defaultDocument)
	} else {
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := decode(path, b, m.lookup)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m *ConfigManager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	if !m.log.IsZero() {
		_, fields := Summarize(cfg)
		m.log.Debug("config loaded", append(fields, logx.String("path", m.path))...)
	}
	return cfg, nil
}
