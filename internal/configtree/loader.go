// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package configtree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/gsps-archiver/internal/logging"
)

// Load reads the tree rooted at dir. Only an unreadable root is an error;
// malformed leaves are logged and recorded in Tree.ParseErrors.
func Load(dir string) (*Tree, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open config tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open config tree: %s is not a directory", dir)
	}

	l := &loader{log: logging.WithComponent("configtree")}
	raw, err := l.loadDir(dir)
	if err != nil {
		return nil, err
	}
	return newTree(raw, l.errs), nil
}

type loader struct {
	log  zerolog.Logger
	errs []error
}

func (l *loader) loadDir(dir string) (map[string]any, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir %s: %w", dir, err)
	}
	out := make(map[string]any, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		key := leafKey(name)
		path := filepath.Join(dir, name)
		// Entries come sorted by name, so of a.json and a.yaml the later wins.
		if _, dup := out[key]; dup {
			l.log.Warn().Str("path", path).Str("key", key).Msg("Configuration entry shadows an earlier one with the same name")
		}

		if entry.IsDir() {
			sub, err := l.loadDir(path)
			if err != nil {
				l.record(path, err)
				sub = map[string]any{}
			}
			out[key] = sub
			continue
		}

		leaf, err := parseLeaf(path)
		if err != nil {
			l.record(path, err)
			leaf = map[string]any{}
		}
		out[key] = leaf
	}
	return out, nil
}

func (l *loader) record(path string, err error) {
	perr := &ConfigParseError{Path: path, Err: err}
	l.errs = append(l.errs, perr)
	l.log.Error().Err(err).Str("path", path).Msg("Failed to load configuration leaf")
}

// leafKey strips everything from the first '.' on.
func leafKey(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

func parseLeaf(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		v = normalizeYAML(v)
	default:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if v == nil {
		return map[string]any{}, nil
	}
	return v, nil
}

// normalizeYAML converts the shapes yaml.v3 may produce into JSON-compatible
// ones: map keys become strings and integers become float64.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeYAML(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalizeYAML(e)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return v
	}
}
