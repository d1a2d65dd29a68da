package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/user/bokehpreview/configs"
)

// Settings is the host configuration consulted whenever the server starts.
type Settings struct {
	Python *PythonSettings `yaml:"python,omitempty" json:"python,omitempty"`
}

// PythonSettings mirrors the editor's "python" configuration section.
type PythonSettings struct {
	PythonPath string `yaml:"pythonPath" json:"pythonPath"`
}

// LoadSettings reads the YAML settings at path. A missing file yields empty
// settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %q: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %q: %w", path, err)
	}
	return &s, nil
}

// EnsureSettings writes the shipped default settings when path is absent.
func EnsureSettings(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat settings %q: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, configs.DefaultSettings, 0o644); err != nil {
		return fmt.Errorf("write default settings %q: %w", path, err)
	}
	return nil
}

// SaveSettings replaces the settings file at path.
func SaveSettings(path string, s *Settings) error {
	if s == nil {
		return errors.New("settings are required")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", path, err)
	}
	return nil
}
