package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/user/bokehpreview/internal/extension"
)

type errorBody struct {
	Error string `json:"error"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if data == nil || status == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

func textResponse(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// commandStatus maps a command error to an HTTP status. Aborted previews
// are the caller's problem, not the daemon's.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, extension.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, extension.ErrNoActiveEditor),
		errors.Is(err, extension.ErrNotApplicable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
