package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromYAML builds a Config from YAML settings.
func FromYAML(data []byte) (Config, error) {
	return parse(data, "yaml", yaml.Unmarshal)
}

// FromJSON builds a Config from JSON settings.
func FromJSON(data []byte) (Config, error) {
	return parse(data, "json", json.Unmarshal)
}

// FromFile builds a Config from a settings file. The format follows
// the file extension: .yaml, .yml or .json.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read settings: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("settings file %s: unsupported extension %q", path, ext)
	}
}

func parse(data []byte, format string, unmarshal func([]byte, any) error) (Config, error) {
	var m map[string]any
	if err := unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse %s settings: %w", format, err)
	}
	return New(m), nil
}
