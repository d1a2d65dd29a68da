// Package server serves the control API, the websocket hub, the preview
// panel page and the static pages on one local port.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/bokehpreview/internal/config"
	"github.com/user/bokehpreview/internal/hub"
	"github.com/user/bokehpreview/internal/panel"
	"github.com/user/bokehpreview/web"
)

type panelSource interface {
	Current() (panel.Panel, bool)
}

type Server struct {
	cfg        *config.Config
	handler    http.Handler
	httpServer *http.Server
}

func New(cfg *config.Config, h *hub.Hub, panels panelSource, apiHandler http.Handler) (*Server, error) {
	mux := http.NewServeMux()

	subFS, err := fs.Sub(web.Assets, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to sub filesystem: %w", err)
	}

	mux.HandleFunc("GET /{$}", servePage(subFS, "index.html"))
	mux.HandleFunc("GET /output", servePage(subFS, "output.html"))
	mux.HandleFunc("GET /panel/{id}", panelPage(cfg.Token, panels))
	mux.HandleFunc("/ws", h.HandleWebSocket)
	if apiHandler != nil {
		mux.Handle("/api/", apiHandler)
	}

	return &Server{
		cfg:     cfg,
		handler: mux,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the routes without a listener.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func servePage(fsys fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	}
}

// panelPage serves the live panel. Stale ids get 410 so a tab left open
// after the panel was closed does not come back to life.
func panelPage(token string, panels panelSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.URL.Query().Get("token") != token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		id := r.PathValue("id")
		p, ok := panels.Current()
		if !ok || p.ID != id {
			http.Error(w, "panel closed", http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(panel.Page(p.ID, token)))
	}
}
