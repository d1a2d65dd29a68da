// Package hub fans daemon events out to websocket clients: the preview panel
// page and the live output page.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const (
	defaultBatchInterval = 100 * time.Millisecond
	// DefaultCloseGrace lets a reloaded panel page reconnect before the
	// panel is reported closed.
	DefaultCloseGrace = 2 * time.Second
)

type Hub struct {
	clients      map[string]*Client
	register     chan *clientRegistration
	unregister   chan *Client
	broadcast    chan []byte
	panelTimeout chan string
	token        string
	mu           sync.RWMutex

	// panel bookkeeping, owned by Run
	panelClients map[string]int
	closeTimers  map[string]*time.Timer

	onPanelClosed func(panelID string)
	closeGrace    time.Duration

	lastStatus   []byte
	statusMu     sync.RWMutex
	rateLimiter  *RateLimiter
	batchEnabled bool
	ctxWrap      *ctxWrapper
	running      atomic.Bool
}

type ctxWrapper struct {
	ctx context.Context
}

type clientRegistration struct {
	client        *Client
	initialStatus []byte
}

type Option func(*Hub)

// WithPanelClosed sets the callback run when the last page bound to a
// panel disconnects. It runs on the hub goroutine and must not block.
func WithPanelClosed(fn func(panelID string)) Option {
	return func(h *Hub) { h.onPanelClosed = fn }
}

func WithCloseGrace(d time.Duration) Option {
	return func(h *Hub) { h.closeGrace = d }
}

// WithBatchInterval sets how long output is collected before it is sent.
// Zero or less sends every chunk as it arrives.
func WithBatchInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d <= 0 {
			h.batchEnabled = false
			return
		}
		h.batchEnabled = true
		h.rateLimiter = NewRateLimiter(d, func(_ string, msg OutputMessage) {
			h.sendBroadcast(msg)
		})
	}
}

func New(token string, opts ...Option) *Hub {
	h := &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *clientRegistration, 16),
		unregister:   make(chan *Client, 16),
		broadcast:    make(chan []byte, 256),
		panelTimeout: make(chan string, 16),
		panelClients: make(map[string]int),
		closeTimers:  make(map[string]*time.Timer),
		token:        token,
		closeGrace:   DefaultCloseGrace,
		batchEnabled: true,
		ctxWrap:      &ctxWrapper{ctx: context.Background()},
	}
	h.rateLimiter = NewRateLimiter(defaultBatchInterval, func(_ string, msg OutputMessage) {
		h.sendBroadcast(msg)
	})
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.FlushPendingOutput()
			for _, t := range h.closeTimers {
				t.Stop()
			}
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case reg := <-h.register:
			c := reg.client
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			if c.panel != "" {
				h.panelClients[c.panel]++
				if t, ok := h.closeTimers[c.panel]; ok {
					t.Stop()
					delete(h.closeTimers, c.panel)
				}
			}
			if reg.initialStatus != nil {
				select {
				case c.send <- reg.initialStatus:
				default:
				}
			}
			go c.writePump(h.getContext())
			go c.readPump(h.getContext())
			slog.Debug("websocket client connected", "client", c.id, "panel", c.panel, "total", h.ClientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c.id]
			if ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
			if !ok {
				continue
			}
			slog.Debug("websocket client disconnected", "client", c.id, "panel", c.panel, "total", h.ClientCount())
			if c.panel != "" {
				h.releasePanel(c.panel)
			}

		case panelID := <-h.panelTimeout:
			delete(h.closeTimers, panelID)
			if h.panelClients[panelID] == 0 {
				h.panelClosed(panelID)
			}

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
					slog.Warn("websocket client send buffer full, dropping message", "client", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) releasePanel(panelID string) {
	h.panelClients[panelID]--
	if h.panelClients[panelID] > 0 {
		return
	}
	if h.closeGrace <= 0 {
		h.panelClosed(panelID)
		return
	}
	if _, ok := h.closeTimers[panelID]; ok {
		return
	}
	h.closeTimers[panelID] = time.AfterFunc(h.closeGrace, func() {
		select {
		case h.panelTimeout <- panelID:
		default:
		}
	})
}

func (h *Hub) panelClosed(panelID string) {
	delete(h.panelClients, panelID)
	slog.Info("panel page closed", "panel", panelID)
	if h.onPanelClosed != nil {
		h.onPanelClosed(panelID)
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || token != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}

	client := newClient(conn, h, r.URL.Query().Get("panel"))

	h.statusMu.RLock()
	initial := h.lastStatus
	h.statusMu.RUnlock()

	select {
	case h.register <- &clientRegistration{client: client, initialStatus: initial}:
	default:
		slog.Warn("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
		return
	}
}

// BroadcastOutput queues text for the output stream.
func (h *Hub) BroadcastOutput(text string) {
	msg := OutputMessage{
		Type:   "output",
		Stream: OutputStream,
		Text:   text,
		Ts:     time.Now().Unix(),
	}
	if h.batchEnabled && h.rateLimiter != nil {
		h.rateLimiter.Add(msg)
	} else {
		h.sendBroadcast(msg)
	}
}

func (h *Hub) BroadcastReveal(panelID string) {
	h.sendBroadcast(RevealMessage{Type: "reveal", Panel: panelID})
}

// BroadcastStatus sends status to every client and remembers it for the
// next client to connect.
func (h *Hub) BroadcastStatus(status any) {
	data, err := json.Marshal(StatusMessage{Type: "status", Status: status})
	if err != nil {
		slog.Error("failed to marshal status message", "error", err)
		return
	}
	h.statusMu.Lock()
	h.lastStatus = data
	h.statusMu.Unlock()
	h.enqueue(data)
}

func (h *Hub) sendBroadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal websocket message", "error", err)
		return
	}
	h.enqueue(data)
}

func (h *Hub) enqueue(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) SendError(client *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// FlushPendingOutput sends batched output now instead of at the next tick.
func (h *Hub) FlushPendingOutput() {
	if h.rateLimiter != nil {
		h.rateLimiter.FlushAll()
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		slog.Warn("unregister channel full, forcing close", "client", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
