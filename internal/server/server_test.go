package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bokehpreview/internal/config"
	"github.com/user/bokehpreview/internal/hub"
	"github.com/user/bokehpreview/internal/panel"
)

func newTestServer(t *testing.T) (*Server, *panel.Manager) {
	t.Helper()
	cfg := &config.Config{Port: 5005, Token: "tok"}
	panels := panel.NewManager(panel.Hooks{})
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv, err := New(cfg, hub.New(cfg.Token), panels, api)
	require.NoError(t, err)
	return srv, panels
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestPanelPage(t *testing.T) {
	srv, panels := newTestServer(t)
	p, _ := panels.Show(1)

	rr := get(t, srv.Handler(), "/panel/"+p.ID+"?token=tok")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, panel.Page(p.ID, "tok"), rr.Body.String())
	assert.Contains(t, rr.Body.String(), `<iframe src="http://localhost:5006/"`)
}

func TestPanelPageRequiresToken(t *testing.T) {
	srv, panels := newTestServer(t)
	p, _ := panels.Show(1)

	rr := get(t, srv.Handler(), "/panel/"+p.ID)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStalePanelIsGone(t *testing.T) {
	srv, panels := newTestServer(t)
	p, _ := panels.Show(1)
	panels.Dispose(p.ID)

	rr := get(t, srv.Handler(), "/panel/"+p.ID+"?token=tok")
	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestStaticPages(t *testing.T) {
	srv, _ := newTestServer(t)

	index := get(t, srv.Handler(), "/")
	require.Equal(t, http.StatusOK, index.Code)
	assert.Contains(t, index.Body.String(), "<title>bokehpreview</title>")

	output := get(t, srv.Handler(), "/output")
	require.Equal(t, http.StatusOK, output.Code)
	assert.True(t, strings.Contains(output.Body.String(), "Output: Bokeh"))

	missing := get(t, srv.Handler(), "/nope")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestAPIIsMounted(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := get(t, srv.Handler(), "/api/status")
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestWebsocketRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := get(t, srv.Handler(), "/ws")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
