// Package panel manages the single preview panel. The panel is a page served
// by the daemon; a browser tab showing it plays the role of the webview.
package panel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ViewType      = "bokehPreview"
	Title         = "Bokeh Preview"
	DefaultColumn = 1
)

// Panel describes the live preview panel.
type Panel struct {
	ID        string    `json:"id"`
	ViewType  string    `json:"view_type"`
	Title     string    `json:"title"`
	Column    int       `json:"column"`
	CreatedAt time.Time `json:"created_at"`
	Reveals   int       `json:"reveals"`
}

// Hooks are called outside the manager's lock.
type Hooks struct {
	OnCreate  func(Panel)
	OnReveal  func(Panel)
	OnDispose func(Panel)
}

// Manager holds at most one panel. A disposed panel is never reused; the
// next Show creates a fresh one.
type Manager struct {
	mu      sync.Mutex
	current *Panel
	hooks   Hooks
	now     func() time.Time
}

func NewManager(hooks Hooks) *Manager {
	return &Manager{hooks: hooks, now: time.Now}
}

// Show reveals the panel in column, creating it first when none exists.
// The boolean reports whether a new panel was created.
func (m *Manager) Show(column int) (Panel, bool) {
	if column <= 0 {
		column = DefaultColumn
	}

	m.mu.Lock()
	if m.current != nil {
		m.current.Column = column
		m.current.Reveals++
		p := *m.current
		m.mu.Unlock()

		slog.Debug("panel revealed", "id", p.ID, "column", column)
		if m.hooks.OnReveal != nil {
			m.hooks.OnReveal(p)
		}
		return p, false
	}

	m.current = &Panel{
		ID:        uuid.NewString(),
		ViewType:  ViewType,
		Title:     Title,
		Column:    column,
		CreatedAt: m.now(),
	}
	p := *m.current
	m.mu.Unlock()

	slog.Info("panel created", "id", p.ID, "column", column)
	if m.hooks.OnCreate != nil {
		m.hooks.OnCreate(p)
	}
	return p, true
}

// Dispose drops the panel if id is current. Stale ids are ignored.
func (m *Manager) Dispose(id string) bool {
	m.mu.Lock()
	if m.current == nil || m.current.ID != id {
		m.mu.Unlock()
		return false
	}
	p := *m.current
	m.current = nil
	m.mu.Unlock()

	slog.Info("panel disposed", "id", p.ID)
	if m.hooks.OnDispose != nil {
		m.hooks.OnDispose(p)
	}
	return true
}

// DisposeCurrent drops whatever panel is live.
func (m *Manager) DisposeCurrent() bool {
	p, ok := m.Current()
	if !ok {
		return false
	}
	return m.Dispose(p.ID)
}

// Current returns the live panel, if any.
func (m *Manager) Current() (Panel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Panel{}, false
	}
	return *m.current, true
}
