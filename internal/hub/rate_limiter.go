package hub

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter coalesces output per stream and flushes each stream at most
// once per interval.
type RateLimiter struct {
	mu       sync.Mutex
	pending  map[string]*pendingOutput
	interval time.Duration
	onFlush  func(stream string, msg OutputMessage)
}

type pendingOutput struct {
	texts []string
	ts    int64
	timer *time.Timer
}

func NewRateLimiter(interval time.Duration, onFlush func(string, OutputMessage)) *RateLimiter {
	return &RateLimiter{
		pending:  make(map[string]*pendingOutput),
		interval: interval,
		onFlush:  onFlush,
	}
}

func (r *RateLimiter) Add(msg OutputMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream := msg.Stream
	p, exists := r.pending[stream]
	if !exists {
		p = &pendingOutput{}
		r.pending[stream] = p
	}

	p.texts = append(p.texts, msg.Text)
	if msg.Ts > p.ts {
		p.ts = msg.Ts
	}

	if p.timer == nil {
		p.timer = time.AfterFunc(r.interval, func() {
			r.flushStream(stream)
		})
	}
}

func (r *RateLimiter) flushStream(stream string) {
	r.mu.Lock()
	p, exists := r.pending[stream]
	if !exists {
		r.mu.Unlock()
		return
	}
	delete(r.pending, stream)
	if p.timer != nil {
		p.timer.Stop()
	}
	r.mu.Unlock()

	if r.onFlush != nil && len(p.texts) > 0 {
		r.onFlush(stream, OutputMessage{
			Type:   "output",
			Stream: stream,
			Text:   strings.Join(p.texts, ""),
			Ts:     p.ts,
		})
	}
}

func (r *RateLimiter) FlushAll() {
	r.mu.Lock()
	streams := make([]string, 0, len(r.pending))
	for s := range r.pending {
		streams = append(streams, s)
	}
	r.mu.Unlock()

	for _, s := range streams {
		r.flushStream(s)
	}
}
