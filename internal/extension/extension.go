// Package extension wires the preview command: detection, the server
// controller, the preview panel and the "Bokeh" log surface.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/bokehpreview/internal/detect"
	"github.com/user/bokehpreview/internal/logsurface"
	"github.com/user/bokehpreview/internal/panel"
)

// CommandID is the command that previews the active document.
const CommandID = "extension.bokehPreview"

var (
	ErrNoActiveEditor = errors.New("no active editor")
	ErrNotApplicable  = errors.New("not a bokeh server entry point")
)

// Server runs `bokeh serve` for one directory at a time.
type Server interface {
	Start(ctx context.Context, dir string) error
	Deactivate(ctx context.Context) error
}

// Panels shows the preview panel.
type Panels interface {
	Show(column int) (panel.Panel, bool)
	DisposeCurrent() bool
}

type Options struct {
	Host   *Host
	Logs   *logsurface.Provider
	Panels Panels
	Server Server
}

// Extension owns the session state that lives from activation to
// deactivation.
type Extension struct {
	host       *Host
	logs       *logsurface.Provider
	panels     Panels
	server     Server
	unregister func()
}

// Activate registers the preview command with the host.
func Activate(opts Options) (*Extension, error) {
	if opts.Host == nil || opts.Panels == nil || opts.Server == nil {
		return nil, errors.New("extension: host, panels and server are required")
	}
	logs := opts.Logs
	if logs == nil {
		logs = logsurface.NewProvider(logsurface.DefaultName)
	}

	e := &Extension{
		host:   opts.Host,
		logs:   logs,
		panels: opts.Panels,
		server: opts.Server,
	}
	unregister, err := e.host.Register(CommandID, e.Preview)
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	e.unregister = unregister

	slog.Info("extension activated", "command", CommandID)
	return e, nil
}

// Preview runs the preview command against the active editor. Aborts are
// logged to the log surface and returned as ErrNoActiveEditor or
// ErrNotApplicable; nothing is started and no panel is shown.
func (e *Extension) Preview(ctx context.Context) error {
	out := e.logs.Channel()
	out.AppendLine("Examining file...")

	ed, ok := e.host.ActiveEditor()
	if !ok {
		out.AppendLine("No active editor")
		return ErrNoActiveEditor
	}

	res := detect.Detect(ed.Path, ed.Text)
	if res.Reason == detect.ReasonMissingInvocations {
		out.AppendLine(detect.ReasonDetected.String())
	}
	out.AppendLine(res.Reason.String())
	if !res.Applicable {
		return fmt.Errorf("%w: %s", ErrNotApplicable, res.Reason)
	}

	dir := res.Dir
	if dir == "" {
		// a bare "main.py" lives in the working directory
		dir = "."
	}
	if err := e.server.Start(ctx, dir); err != nil {
		return fmt.Errorf("start server for %s: %w", dir, err)
	}

	e.panels.Show(ed.Column)
	return nil
}

// Deactivate kills the server, closes the panel and the log surface. The
// command is unregistered first so nothing new can start.
func (e *Extension) Deactivate(ctx context.Context) error {
	if e.unregister != nil {
		e.unregister()
		e.unregister = nil
	}

	err := e.server.Deactivate(ctx)
	e.panels.DisposeCurrent()
	if cerr := e.logs.Close(); cerr != nil {
		slog.Warn("failed to close log surface", "error", cerr)
	}
	slog.Info("extension deactivated")
	return err
}
