// Package daemon assembles the preview host: it plays the editor for the
// extension and exposes everything over one local HTTP port.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/user/bokehpreview/internal/api"
	"github.com/user/bokehpreview/internal/config"
	"github.com/user/bokehpreview/internal/extension"
	"github.com/user/bokehpreview/internal/hub"
	"github.com/user/bokehpreview/internal/interpreter"
	"github.com/user/bokehpreview/internal/logsurface"
	"github.com/user/bokehpreview/internal/panel"
	"github.com/user/bokehpreview/internal/process"
	"github.com/user/bokehpreview/internal/server"
	"github.com/user/bokehpreview/internal/session"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	// Spawner overrides the one chosen by cfg.Terminal.
	Spawner process.Spawner
	// OpenURL opens panel pages when cfg.OpenBrowser is set.
	OpenURL func(string)
}

type Daemon struct {
	cfg     *config.Config
	openURL func(string)

	host       *extension.Host
	logs       *logsurface.Provider
	hub        *hub.Hub
	panels     *panel.Manager
	controller *session.Controller
	ext        *extension.Extension
	server     *server.Server

	forwarding sync.WaitGroup
}

type statusMessage struct {
	Session session.Status `json:"session"`
	Panel   *panel.Panel   `json:"panel,omitempty"`
}

func New(cfg *config.Config, opts Options) (*Daemon, error) {
	d := &Daemon{
		cfg:     cfg,
		openURL: opts.OpenURL,
		host:    extension.NewHost(),
	}
	if d.openURL == nil {
		d.openURL = OpenURL
	}

	d.hub = hub.New(cfg.Token,
		hub.WithPanelClosed(func(id string) { d.panels.Dispose(id) }),
		hub.WithBatchInterval(cfg.OutputBatch),
	)

	logOpts := []logsurface.Option{logsurface.WithOnCreate(d.forwardOutput)}
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logsurface.WithFile(cfg.LogFile))
	}
	d.logs = logsurface.NewProvider(logsurface.DefaultName, logOpts...)

	d.panels = panel.NewManager(panel.Hooks{
		OnCreate: d.panelCreated,
		OnReveal: func(p panel.Panel) {
			d.hub.BroadcastReveal(p.ID)
			d.publishStatus()
		},
		OnDispose: func(panel.Panel) { d.publishStatus() },
	})

	spawner := opts.Spawner
	if spawner == nil {
		spawner = spawnerFor(cfg.Terminal)
	}
	d.controller = session.NewController(session.Options{
		Spawner:  spawner,
		Resolver: interpreter.NewResolver(interpreter.FromFile(cfg.SettingsPath)),
		Output:   func() session.Output { return d.logs.Channel() },
		DevMode:  cfg.DevMode,
		OnChange: func(session.Status) { d.publishStatus() },
	})

	ext, err := extension.Activate(extension.Options{
		Host:   d.host,
		Logs:   d.logs,
		Panels: d.panels,
		Server: d.controller,
	})
	if err != nil {
		return nil, err
	}
	d.ext = ext

	apiHandler := api.NewRouter(api.Deps{
		Host:         d.host,
		Session:      d.controller,
		Panels:       d.panels,
		Logs:         d.logs,
		SettingsPath: cfg.SettingsPath,
		BaseURL:      cfg.BaseURL(),
	}, cfg.Token)

	srv, err := server.New(cfg, d.hub, d.panels, apiHandler)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	d.server = srv
	return d, nil
}

// Run serves until ctx is done, then deactivates the extension so the bokeh
// server is killed before returning.
func (d *Daemon) Run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go d.hub.Run(hubCtx)

	err := d.server.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if derr := d.Shutdown(shutdownCtx); derr != nil {
		slog.Warn("deactivation did not complete", "error", derr)
	}
	// push the killed server's last lines before the hub stops
	d.waitForwarded(shutdownCtx)
	d.hub.FlushPendingOutput()
	return err
}

// Shutdown deactivates the extension.
func (d *Daemon) Shutdown(ctx context.Context) error {
	return d.ext.Deactivate(ctx)
}

func (d *Daemon) Handler() http.Handler { return d.server.Handler() }

func (d *Daemon) Host() *extension.Host { return d.host }

// PanelURL is the browser address of panel id.
func (d *Daemon) PanelURL(id string) string {
	return d.cfg.BaseURL() + "/panel/" + url.PathEscape(id) + "?token=" + url.QueryEscape(d.cfg.Token)
}

func (d *Daemon) panelCreated(p panel.Panel) {
	d.publishStatus()
	if !d.cfg.OpenBrowser {
		slog.Info("preview panel ready", "url", d.PanelURL(p.ID))
		return
	}
	d.openURL(d.PanelURL(p.ID))
}

// forwardOutput streams every append on the log surface to websocket
// clients until the surface is closed.
func (d *Daemon) forwardOutput(ch *logsurface.Channel) {
	sub, _ := ch.Subscribe()
	d.forwarding.Add(1)
	go func() {
		defer d.forwarding.Done()
		for text := range sub {
			d.hub.BroadcastOutput(text)
		}
	}()
}

// waitForwarded waits until the closed log surface has been drained into the
// hub.
func (d *Daemon) waitForwarded(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.forwarding.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (d *Daemon) publishStatus() {
	msg := statusMessage{Session: d.controller.Status()}
	if p, ok := d.panels.Current(); ok {
		msg.Panel = &p
	}
	d.hub.BroadcastStatus(msg)
}

func spawnerFor(terminal string) process.Spawner {
	if terminal == config.TerminalPTY {
		return process.PTYSpawner{}
	}
	return process.PipeSpawner{}
}
