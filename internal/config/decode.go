package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// decode turns a config document into a Config. The document is parsed
// into a generic tree first (YAML by file extension, JSON otherwise),
// ${VAR} references are expanded inside string values only, and the tree
// goes through a strict JSON decode: unknown fields are errors. Expanding
// after parsing means a value holding quotes, backslashes or newlines stays
// one string and cannot reshape the document.
func decode(path string, data []byte, lookup func(string) (string, bool)) (*Config, error) {
	format := "json"
	var (
		tree any
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
		tree, err = parseYAML(data)
	default:
		tree, err = parseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s config: %w", format, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%s config %s is empty", format, path)
	}

	b, err := json.Marshal(expandTree(tree, lookup))
	if err != nil {
		return nil, fmt.Errorf("%s config: %w", format, err)
	}
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s config: %w", format, err)
	}
	return &cfg, nil
}

func parseYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseJSON keeps numbers as json.Number so they re-encode unchanged, and
// rejects anything after the first value.
func parseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("trailing data after the document")
		}
		return nil, err
	}
	return v, nil
}

// expandTree expands string leaves and rewrites map keys as strings; YAML
// allows non-string keys (e.g. "1: x") that encoding/json rejects.
func expandTree(in any, lookup func(string) (string, bool)) any {
	switch x := in.(type) {
	case string:
		return ExpandEnv(x, lookup)
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = expandTree(v, lookup)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = expandTree(v, lookup)
		}
		return x
	case []any:
		for i := range x {
			x[i] = expandTree(x[i], lookup)
		}
		return x
	default:
		return in
	}
}
