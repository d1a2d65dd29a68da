// Package api is the daemon's control API: editors report the active
// document and invoke commands, the CLI reads status and output.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/user/bokehpreview/internal/extension"
	"github.com/user/bokehpreview/internal/logsurface"
	"github.com/user/bokehpreview/internal/panel"
	"github.com/user/bokehpreview/internal/session"
)

type sessionStatus interface {
	Status() session.Status
}

type panelManager interface {
	Current() (panel.Panel, bool)
	DisposeCurrent() bool
}

// Deps are the daemon components the API drives.
type Deps struct {
	Host         *extension.Host
	Session      sessionStatus
	Panels       panelManager
	Logs         *logsurface.Provider
	SettingsPath string
	// BaseURL is used to build panel links in status responses.
	BaseURL string
}

type handler struct {
	host         *extension.Host
	session      sessionStatus
	panels       panelManager
	logs         *logsurface.Provider
	settingsPath string
	baseURL      string
	token        string
}

func NewRouter(deps Deps, token string) http.Handler {
	h := &handler{
		host:         deps.Host,
		session:      deps.Session,
		panels:       deps.Panels,
		logs:         deps.Logs,
		settingsPath: deps.SettingsPath,
		baseURL:      strings.TrimRight(deps.BaseURL, "/"),
		token:        token,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/editor", h.setEditor)
	mux.HandleFunc("DELETE /api/editor", h.clearEditor)

	mux.HandleFunc("GET /api/commands", h.listCommands)
	mux.HandleFunc("POST /api/commands/{name}", h.executeCommand)
	mux.HandleFunc("POST /api/preview", h.preview)

	mux.HandleFunc("GET /api/status", h.getStatus)
	mux.HandleFunc("GET /api/output", h.getOutput)
	mux.HandleFunc("DELETE /api/panel", h.disposePanel)

	mux.HandleFunc("GET /api/settings", h.getSettings)
	mux.HandleFunc("PUT /api/settings", h.updateSettings)

	return authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			jsonError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeJSON reads one JSON value, up to 8 MiB so whole documents fit.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 8<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}
