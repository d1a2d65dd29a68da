package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bokehpreview/internal/api"
	"github.com/user/bokehpreview/internal/config"
	"github.com/user/bokehpreview/internal/extension"
	"github.com/user/bokehpreview/internal/process"
	"github.com/user/bokehpreview/internal/session"
)

const bokehApp = "from bokeh.io import curdoc\ncurdoc().add_root(column())\n"

type stubHandle struct {
	pid    int
	events chan process.Event
	once   sync.Once
}

func (h *stubHandle) PID() int                     { return h.pid }
func (h *stubHandle) Events() <-chan process.Event { return h.events }

// Kill behaves like SIGTERM on a well-behaved server.
func (h *stubHandle) Kill() error {
	h.once.Do(func() {
		h.events <- process.Event{Type: process.EventExited, ExitCode: -1}
		close(h.events)
	})
	return nil
}

type recorder struct {
	mu     sync.Mutex
	specs  []process.Spec
	opened []string
}

func (r *recorder) Spawn(spec process.Spec) (process.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, spec)
	h := &stubHandle{pid: 100 + len(r.specs), events: make(chan process.Event, 8)}
	h.events <- process.Event{Type: process.EventStderr, Data: "Bokeh app running at: http://localhost:5006/\n"}
	return h, nil
}

func (r *recorder) open(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, url)
}

func (r *recorder) snapshot() ([]process.Spec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Spec(nil), r.specs...), append([]string(nil), r.opened...)
}

func newTestDaemon(t *testing.T) (*Daemon, *recorder, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.SaveSettings(settings, &config.Settings{
		Python: &config.PythonSettings{PythonPath: "/venv/bin/python"},
	}))

	cfg := &config.Config{
		Port:         5005,
		Token:        "tok",
		SettingsPath: settings,
		OpenBrowser:  true,
		Terminal:     config.TerminalPipe,
		DevMode:      true,
	}
	rec := &recorder{}
	d, err := New(cfg, Options{Spawner: rec, OpenURL: rec.open})
	require.NoError(t, err)

	srv := httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return d, rec, srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getText(t *testing.T, srv *httptest.Server, path string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func previewBody(t *testing.T, ed extension.Editor) string {
	t.Helper()
	data, err := json.Marshal(ed)
	require.NoError(t, err)
	return string(data)
}

func TestPreviewEndToEnd(t *testing.T) {
	d, rec, srv := newTestDaemon(t)

	resp := post(t, srv, "/api/preview", previewBody(t, extension.Editor{Path: "/apps/iris/main.py", Text: bokehApp}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st api.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, session.StateRunning, st.Session.State)
	require.NotNil(t, st.Panel)

	specs, opened := rec.snapshot()
	require.Len(t, specs, 1)
	assert.Equal(t, "/venv/bin/python", specs[0].Path)
	assert.Equal(t, []string{"-m", "bokeh", "serve", "/apps/iris/", "--dev"}, specs[0].Args)
	assert.Equal(t, []string{d.PanelURL(st.Panel.ID)}, opened)

	require.Eventually(t, func() bool {
		return strings.Contains(getText(t, srv, "/api/output"), "Bokeh app running at")
	}, 2*time.Second, 10*time.Millisecond)
	out := getText(t, srv, "/api/output")
	assert.True(t, strings.HasPrefix(out, "Examining file...\nmain.py detected\nStarting server...\nUsing /venv/bin/python\n"), out)

	page := getText(t, srv, "/panel/"+st.Panel.ID+"?token=tok")
	assert.Contains(t, page, `<iframe src="http://localhost:5006/"`)
}

func TestSecondPreviewRestartsAndReveals(t *testing.T) {
	_, rec, srv := newTestDaemon(t)

	post(t, srv, "/api/preview", previewBody(t, extension.Editor{Path: "/a/main.py", Text: bokehApp}))
	post(t, srv, "/api/preview", previewBody(t, extension.Editor{Path: "/b/main.py", Text: bokehApp}))

	require.Eventually(t, func() bool {
		specs, _ := rec.snapshot()
		return len(specs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	specs, opened := rec.snapshot()
	assert.Equal(t, "/b/", specs[1].Args[3])
	assert.Len(t, opened, 1, "the panel is revealed, not reopened")
	assert.Contains(t, getText(t, srv, "/api/output"), "child process exited with code -1")
}

func TestNonApplicableFileStartsNothing(t *testing.T) {
	_, rec, srv := newTestDaemon(t)

	resp := post(t, srv, "/api/preview", previewBody(t, extension.Editor{Path: "/a/plot.py", Text: bokehApp}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	specs, opened := rec.snapshot()
	assert.Empty(t, specs)
	assert.Empty(t, opened)
}

func TestShutdownKillsServer(t *testing.T) {
	d, _, srv := newTestDaemon(t)
	post(t, srv, "/api/preview", previewBody(t, extension.Editor{Path: "/a/main.py", Text: bokehApp}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	assert.Equal(t, session.StateIdle, d.controller.Status().State)
	assert.Empty(t, d.Host().Commands())
}
