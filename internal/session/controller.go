// Package session owns the Bokeh server child process. A single event loop
// goroutine serializes start requests, process output and process exit, so
// the state below is never touched concurrently.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/bokehpreview/internal/interpreter"
	"github.com/user/bokehpreview/internal/process"
)

const inboxSize = 256

// Controller restarts the server by killing the running process and
// spawning the newest requested directory when the exit is observed. Only
// one restart request is remembered: a later Start before the exit
// overwrites an earlier one.
type Controller struct {
	spawner  process.Spawner
	resolver Resolver
	output   func() Output
	devMode  bool
	env      []string
	onChange func(Status)
	now      func() time.Time

	inbox  chan any
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// owned by the loop goroutine
	state       State
	proc        process.Handle
	dir         string
	pending     string
	startedAt   time.Time
	spawns      int
	lastExit    *int
	stopping    bool
	exitWaiters []chan struct{}

	statusMu sync.RWMutex
	status   Status
}

// NewController starts the controller's event loop.
func NewController(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		spawner:  opts.Spawner,
		resolver: opts.Resolver,
		output:   opts.Output,
		devMode:  opts.DevMode,
		env:      opts.Env,
		onChange: opts.OnChange,
		now:      opts.Now,
		inbox:    make(chan any, inboxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if c.spawner == nil {
		c.spawner = process.PipeSpawner{}
	}
	if c.resolver == nil {
		c.resolver = interpreter.NewResolver(nil)
	}
	if c.output == nil {
		c.output = func() Output { return discard{} }
	}
	if c.now == nil {
		c.now = time.Now
	}
	go c.loop()
	return c
}

// Start requests that dir be served. When idle the server is spawned right
// away; when running the current process is killed and dir is spawned after
// its exit. Start returns once the request has been applied.
func (c *Controller) Start(ctx context.Context, dir string) error {
	if dir == "" {
		return ErrEmptyDir
	}
	reply := make(chan error, 1)
	if err := c.send(ctx, startInput{dir: dir, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deactivate drops any pending restart, kills a live process, waits for its
// exit (bounded by ctx) and stops the event loop. It is safe to call more
// than once.
func (c *Controller) Deactivate(ctx context.Context) error {
	exited := make(chan struct{})
	if err := c.send(ctx, deactivateInput{exited: exited}); err != nil {
		if err == ErrStopped {
			return nil
		}
		return err
	}

	var err error
	select {
	case <-exited:
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.cancel()
	<-c.done
	return err
}

// Status returns the latest snapshot.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Done is closed when the event loop has exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) send(ctx context.Context, in any) error {
	select {
	case <-c.ctx.Done():
		return ErrStopped
	default:
	}
	select {
	case c.inbox <- in:
		return nil
	case <-c.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case in := <-c.inbox:
			c.handle(in)
		}
	}
}

func (c *Controller) handle(in any) {
	switch in := in.(type) {
	case startInput:
		in.reply <- c.handleStart(in.dir)
	case processInput:
		c.handleProcessEvent(in.handle, in.event)
	case deactivateInput:
		c.handleDeactivate(in.exited)
	default:
		slog.Warn("session controller: unknown input", "type", fmt.Sprintf("%T", in))
	}
}

func (c *Controller) handleStart(dir string) error {
	if c.stopping {
		return ErrStopped
	}
	c.output().AppendLine("Starting server...")
	c.pending = dir

	if c.state == StateRunning {
		if err := c.proc.Kill(); err != nil {
			slog.Warn("failed to kill bokeh server", "pid", c.proc.PID(), "error", err)
		}
		c.publish()
		return nil
	}

	c.spawnPending()
	return nil
}

// spawnPending consumes the pending slot. The slot is cleared before the
// spawn so that a failed spawn is not retried.
func (c *Controller) spawnPending() {
	if c.pending == "" {
		c.publish()
		return
	}

	out := c.output()
	dir := c.pending
	python := c.resolver.Resolve(out)
	spec := process.Spec{
		Path: python,
		Args: ServeArgs(dir, c.devMode),
		Env:  c.env,
	}
	c.pending = ""

	h, err := c.spawner.Spawn(spec)
	if err != nil {
		out.AppendLine(fmt.Sprintf("Failed to start %s: %v", spec.CommandLine(), err))
		slog.Error("failed to spawn bokeh server", "command", spec.CommandLine(), "error", err)
		c.publish()
		return
	}

	c.proc = h
	c.state = StateRunning
	c.dir = dir
	c.startedAt = c.now()
	c.spawns++
	slog.Info("bokeh server started", "pid", h.PID(), "dir", dir, "command", spec.CommandLine())

	go c.forward(h)
	c.publish()
}

// forward posts every event of h to the loop. Once the loop is gone it keeps
// draining so the child never blocks on a full pipe.
func (c *Controller) forward(h process.Handle) {
	for ev := range h.Events() {
		select {
		case c.inbox <- processInput{handle: h, event: ev}:
		case <-c.ctx.Done():
		}
	}
}

func (c *Controller) handleProcessEvent(h process.Handle, ev process.Event) {
	out := c.output()
	switch ev.Type {
	case process.EventStdout, process.EventStderr:
		out.Append(ev.Data)
	case process.EventExited:
		out.AppendLine(fmt.Sprintf("child process exited with code %d", ev.ExitCode))
		if h != c.proc {
			return
		}
		code := ev.ExitCode
		c.lastExit = &code
		c.proc = nil
		c.state = StateIdle
		c.dir = ""
		c.startedAt = time.Time{}
		slog.Info("bokeh server exited", "pid", h.PID(), "code", code)

		for _, w := range c.exitWaiters {
			close(w)
		}
		c.exitWaiters = nil

		if c.stopping {
			c.publish()
			return
		}
		c.spawnPending()
	}
}

func (c *Controller) handleDeactivate(exited chan struct{}) {
	c.stopping = true
	c.pending = ""

	if c.state != StateRunning {
		close(exited)
		c.publish()
		return
	}

	if err := c.proc.Kill(); err != nil {
		slog.Warn("failed to kill bokeh server", "pid", c.proc.PID(), "error", err)
	}
	c.exitWaiters = append(c.exitWaiters, exited)
	c.publish()
}

func (c *Controller) publish() {
	st := Status{
		State:    c.state,
		Dir:      c.dir,
		Pending:  c.pending,
		Spawns:   c.spawns,
		LastExit: c.lastExit,
	}
	if c.proc != nil {
		st.PID = c.proc.PID()
	}
	if !c.startedAt.IsZero() {
		started := c.startedAt
		st.StartedAt = &started
	}

	c.statusMu.Lock()
	c.status = st
	c.statusMu.Unlock()

	if c.onChange != nil {
		c.onChange(st)
	}
}

type discard struct{}

func (discard) Append(string)     {}
func (discard) AppendLine(string) {}
