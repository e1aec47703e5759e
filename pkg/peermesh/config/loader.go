package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decoders maps file extensions to parsers. YAML is the primary
// format for mesh configuration files; JSON is accepted for callers
// that generate their config programmatically.
var decoders = map[string]func([]byte) (Config, error){
	".yaml": FromYAML,
	".yml":  FromYAML,
	".json": FromJSON,
}

// FromFile reads a mesh configuration file, picking the parser by
// file extension. The result is usually handed straight to
// SettingsFromConfig in the root package:
//
//	cfg, err := config.FromFile("mesh.yaml")
//	if err != nil {
//	    return err
//	}
//	settings := peermesh.SettingsFromConfig(cfg)
func FromFile(path string) (Config, error) {
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, filepath.Ext(path))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(raw)
}

// FromYAML parses YAML into a Config.
func FromYAML(raw []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON into a Config.
func FromJSON(raw []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Config{}, fmt.Errorf("parse json config: %w", err)
	}
	return New(m), nil
}
