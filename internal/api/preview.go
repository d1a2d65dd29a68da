package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/bokehpreview/internal/extension"
)

type commandsResponse struct {
	Commands []string `json:"commands"`
}

func (h *handler) setEditor(w http.ResponseWriter, r *http.Request) {
	var ed extension.Editor
	if err := decodeJSON(r, &ed); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(ed.Path) == "" {
		jsonError(w, http.StatusBadRequest, "path is required")
		return
	}
	h.host.SetActiveEditor(ed)
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *handler) clearEditor(w http.ResponseWriter, _ *http.Request) {
	h.host.ClearActiveEditor()
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *handler) listCommands(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, commandsResponse{Commands: h.host.Commands()})
}

func (h *handler) executeCommand(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, r.PathValue("name"))
}

// preview sets the active editor and runs the preview command in one call.
func (h *handler) preview(w http.ResponseWriter, r *http.Request) {
	var ed extension.Editor
	if err := decodeJSON(r, &ed); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(ed.Path) == "" {
		jsonError(w, http.StatusBadRequest, "path is required")
		return
	}
	err := h.host.ExecuteWith(r.Context(), ed, extension.CommandID)
	h.commandResult(w, extension.CommandID, err)
}

func (h *handler) runCommand(w http.ResponseWriter, r *http.Request, name string) {
	h.commandResult(w, name, h.host.Execute(r.Context(), name))
}

func (h *handler) commandResult(w http.ResponseWriter, name string, err error) {
	if err != nil {
		status := commandStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("command failed", "command", name, "error", err)
		}
		jsonError(w, status, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, h.snapshot())
}
