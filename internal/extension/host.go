package extension

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrCommandExists  = errors.New("command already registered")
)

// Editor is the document the user is looking at, as reported by the editor.
type Editor struct {
	Path   string `json:"path"`
	Text   string `json:"text"`
	Column int    `json:"column,omitempty"`
}

// CommandFunc runs a registered command.
type CommandFunc func(ctx context.Context) error

// Host stands in for the editor: it tracks the active editor and dispatches
// commands by id.
type Host struct {
	mu       sync.RWMutex
	active   *Editor
	commands map[string]CommandFunc

	// run serializes ExecuteWith so a command sees the editor it was sent
	// with.
	run sync.Mutex
}

func NewHost() *Host {
	return &Host{commands: make(map[string]CommandFunc)}
}

func (h *Host) SetActiveEditor(e Editor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = &e
}

func (h *Host) ClearActiveEditor() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = nil
}

func (h *Host) ActiveEditor() (Editor, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.active == nil {
		return Editor{}, false
	}
	return *h.active, true
}

// Register adds a command and returns a function that removes it again.
func (h *Host) Register(id string, fn CommandFunc) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.commands[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandExists, id)
	}
	h.commands[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.commands, id)
		h.mu.Unlock()
	}, nil
}

func (h *Host) Execute(ctx context.Context, id string) error {
	h.mu.RLock()
	fn, ok := h.commands[id]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	return fn(ctx)
}

// ExecuteWith makes e the active editor and runs command id against it.
// Concurrent calls run one at a time.
func (h *Host) ExecuteWith(ctx context.Context, e Editor, id string) error {
	h.run.Lock()
	defer h.run.Unlock()
	h.SetActiveEditor(e)
	return h.Execute(ctx, id)
}

// Commands lists registered command ids in order.
func (h *Host) Commands() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.commands))
	for id := range h.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
