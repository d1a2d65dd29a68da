package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/user/bokehpreview/configs"
)

func TestLoadSettingsMissingFileIsEmpty(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Python != nil {
		t.Fatalf("Python = %+v, want nil", s.Python)
	}
}

func TestLoadSettingsParsesPythonPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("python:\n  pythonPath: /opt/venv/bin/python\n"), 0o644); err != nil {
		t.Fatalf("write settings error = %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Python == nil || s.Python.PythonPath != "/opt/venv/bin/python" {
		t.Fatalf("Python = %+v, want pythonPath /opt/venv/bin/python", s.Python)
	}
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("python: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write settings error = %v", err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Fatal("LoadSettings() error = nil, want parse error")
	}
}

func TestEnsureSettingsWritesDefaultOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.yaml")

	if err := EnsureSettings(path); err != nil {
		t.Fatalf("EnsureSettings() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read settings error = %v", err)
	}
	if string(data) != string(configs.DefaultSettings) {
		t.Fatalf("settings content = %q, want embedded default", data)
	}

	if err := os.WriteFile(path, []byte("python:\n  pythonPath: custom\n"), 0o644); err != nil {
		t.Fatalf("overwrite settings error = %v", err)
	}
	if err := EnsureSettings(path); err != nil {
		t.Fatalf("second EnsureSettings() error = %v", err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Python == nil || s.Python.PythonPath != "custom" {
		t.Fatalf("EnsureSettings overwrote user settings: %+v", s.Python)
	}
}

func TestDefaultSettingsLeavePythonUnconfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := EnsureSettings(path); err != nil {
		t.Fatalf("EnsureSettings() error = %v", err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Python != nil {
		t.Fatalf("Python = %+v, want nil for shipped defaults", s.Python)
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	want := &Settings{Python: &PythonSettings{PythonPath: "/usr/bin/python3"}}

	if err := SaveSettings(path, want); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got.Python == nil || got.Python.PythonPath != want.Python.PythonPath {
		t.Fatalf("got %+v, want %+v", got.Python, want.Python)
	}
}
