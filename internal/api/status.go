package api

import (
	"net/http"
	"net/url"

	"github.com/user/bokehpreview/internal/ansi"
	"github.com/user/bokehpreview/internal/panel"
	"github.com/user/bokehpreview/internal/session"
)

type OutputInfo struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
	Size    int    `json:"size"`
}

// StatusResponse is returned by GET /api/status and by successful commands.
type StatusResponse struct {
	Session   session.Status `json:"session"`
	Panel     *panel.Panel   `json:"panel,omitempty"`
	PanelURL  string         `json:"panel_url,omitempty"`
	ServerURL string         `json:"server_url"`
	Output    OutputInfo     `json:"output"`
}

func (h *handler) snapshot() StatusResponse {
	resp := StatusResponse{
		ServerURL: panel.ServerURL,
		Output:    OutputInfo{Name: h.logs.Name()},
	}
	if h.session != nil {
		resp.Session = h.session.Status()
	}
	if p, ok := h.panels.Current(); ok {
		resp.Panel = &p
		resp.PanelURL = h.baseURL + "/panel/" + url.PathEscape(p.ID)
	}
	if h.logs.Created() {
		ch := h.logs.Channel()
		resp.Output.Created = true
		resp.Output.Size = ch.Size()
	}
	return resp
}

func (h *handler) getStatus(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, h.snapshot())
}

// getOutput returns the log surface as text. Reading never creates the
// surface.
func (h *handler) getOutput(w http.ResponseWriter, r *http.Request) {
	var text string
	if h.logs.Created() {
		text = h.logs.Channel().Contents()
	}
	if r.URL.Query().Get("plain") == "1" {
		text = ansi.Strip(text)
	}
	textResponse(w, http.StatusOK, text)
}

func (h *handler) disposePanel(w http.ResponseWriter, _ *http.Request) {
	if !h.panels.DisposeCurrent() {
		jsonError(w, http.StatusNotFound, "no panel is open")
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}
