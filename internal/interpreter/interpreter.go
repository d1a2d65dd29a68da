// Package interpreter resolves the Python executable used to launch the
// Bokeh server from the host settings.
package interpreter

import (
	"log/slog"

	"github.com/user/bokehpreview/internal/config"
)

// Fallback is used when no interpreter is configured. It is resolved
// through PATH by the process spawner.
const Fallback = "python"

// Output receives the resolver's diagnostic lines.
type Output interface {
	AppendLine(text string)
}

// SettingsFunc returns the current host settings.
type SettingsFunc func() (*config.Settings, error)

// FromFile reads settings from path on every call.
func FromFile(path string) SettingsFunc {
	return func() (*config.Settings, error) {
		return config.LoadSettings(path)
	}
}

// Resolver picks the interpreter. Settings are read on every Resolve call so
// edits apply to the next server start.
type Resolver struct {
	settings SettingsFunc
}

func NewResolver(settings SettingsFunc) *Resolver {
	return &Resolver{settings: settings}
}

// Resolve returns the configured python path or Fallback. The path is not
// checked for existence.
func (r *Resolver) Resolve(out Output) string {
	var s *config.Settings
	if r != nil && r.settings != nil {
		var err error
		s, err = r.settings()
		if err != nil {
			slog.Warn("failed to read host settings", "error", err)
			s = nil
		}
	}

	if s == nil || s.Python == nil {
		out.AppendLine("Python not configured, assuming global python")
		return Fallback
	}

	if s.Python.PythonPath == "" {
		out.AppendLine("No environment found, assuming global python")
		return Fallback
	}

	out.AppendLine("Using " + s.Python.PythonPath)
	return s.Python.PythonPath
}
