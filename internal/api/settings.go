package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/bokehpreview/internal/config"
)

func (h *handler) getSettings(w http.ResponseWriter, _ *http.Request) {
	s, err := config.LoadSettings(h.settingsPath)
	if err != nil {
		slog.Error("failed to load settings", "path", h.settingsPath, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// updateSettings replaces the settings file. The next server start picks it
// up; a running server is left alone.
func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req config.Settings
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Python != nil {
		req.Python.PythonPath = strings.TrimSpace(req.Python.PythonPath)
	}

	if err := config.SaveSettings(h.settingsPath, &req); err != nil {
		slog.Error("failed to save settings", "path", h.settingsPath, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	h.getSettings(w, r)
}
