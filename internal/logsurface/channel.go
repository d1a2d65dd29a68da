// Package logsurface implements the append-only output channel that receives
// diagnostics and the raw output of the Bokeh server process.
package logsurface

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

const (
	// DefaultName is the channel name shown to users.
	DefaultName = "Bokeh"

	defaultCapacity   = 256 * 1024
	subscriberBacklog = 64
)

// Channel is an append-only text sink. Text is retained in memory (bounded),
// optionally mirrored to a file and fanned out to live subscribers.
type Channel struct {
	name string
	buf  *ringBuf

	mu     sync.Mutex
	file   io.WriteCloser
	subs   map[chan string]struct{}
	closed bool
}

func newChannel(name string, capacity int, file io.WriteCloser) *Channel {
	return &Channel{
		name: name,
		buf:  newRingBuf(capacity),
		file: file,
		subs: make(map[chan string]struct{}),
	}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Append writes text as-is.
func (c *Channel) Append(text string) {
	if text == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.buf.Write([]byte(text))
	if c.file != nil {
		if _, err := io.WriteString(c.file, text); err != nil {
			slog.Warn("log surface file write failed", "channel", c.name, "error", err)
			_ = c.file.Close()
			c.file = nil
		}
	}
	for ch := range c.subs {
		select {
		case ch <- text:
		default:
		}
	}
}

// AppendLine writes text followed by a newline.
func (c *Channel) AppendLine(text string) {
	c.Append(text + "\n")
}

// Contents returns the retained text.
func (c *Channel) Contents() string {
	return string(c.buf.Bytes())
}

// Size returns the number of retained bytes.
func (c *Channel) Size() int {
	return c.buf.Len()
}

// Subscribe returns a channel receiving every subsequent Append and a
// function that cancels the subscription. Slow subscribers miss chunks.
func (c *Channel) Subscribe() (<-chan string, func()) {
	ch := make(chan string, subscriberBacklog)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
			c.mu.Unlock()
		})
	}
}

// Close stops accepting text, ends all subscriptions and closes the mirror
// file. Retained text stays readable.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
	if c.file != nil {
		err := c.file.Close()
		c.file = nil
		return err
	}
	return nil
}

// Provider lazily creates a single Channel on first use and hands out the
// same instance afterwards.
type Provider struct {
	name     string
	capacity int
	filePath string
	onCreate func(*Channel)

	mu sync.Mutex
	ch *Channel
}

// Option configures a Provider.
type Option func(*Provider)

// WithFile mirrors all text to path, opened in append mode.
func WithFile(path string) Option {
	return func(p *Provider) { p.filePath = path }
}

// WithCapacity sets the in-memory retention in bytes.
func WithCapacity(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithOnCreate runs fn once, right after the channel is created and before
// it is returned to the first caller.
func WithOnCreate(fn func(*Channel)) Option {
	return func(p *Provider) { p.onCreate = fn }
}

// NewProvider returns a provider for the channel called name.
func NewProvider(name string, opts ...Option) *Provider {
	p := &Provider{
		name:     name,
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Channel returns the channel, creating it on the first call.
func (p *Provider) Channel() *Channel {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		p.ch = newChannel(p.name, p.capacity, p.openFile())
		if p.onCreate != nil {
			p.onCreate(p.ch)
		}
	}
	return p.ch
}

// Name returns the name the channel is (or will be) created with.
func (p *Provider) Name() string { return p.name }

// Created reports whether the channel has been created yet.
func (p *Provider) Created() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch != nil
}

// Close closes the channel if it was created.
func (p *Provider) Close() error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()

	if ch == nil {
		return nil
	}
	return ch.Close()
}

func (p *Provider) openFile() io.WriteCloser {
	if p.filePath == "" {
		return nil
	}
	f, err := os.OpenFile(p.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("failed to open log surface file", "path", p.filePath, "error", err)
		return nil
	}
	return f
}
