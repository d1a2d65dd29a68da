// Package process starts the Bokeh server child process and turns its
// output and exit into a stream of events.
package process

import (
	"errors"
	"io"
	"os/exec"
	"sync"
	"syscall"
)

const eventBuffer = 1024

var errNotStarted = errors.New("process: not started")

// Process is a child whose stdout and stderr are read through pipes.
type Process struct {
	cmd    *exec.Cmd
	events chan Event

	mu     sync.Mutex
	exited bool
}

// PipeSpawner starts processes with separate stdout and stderr pipes.
type PipeSpawner struct{}

func (PipeSpawner) Spawn(spec Spec) (Handle, error) {
	return Start(spec)
}

// Start launches spec and begins streaming its output.
func Start(spec Spec) (*Process, error) {
	if spec.Path == "" {
		return nil, errors.New("process: path must not be empty")
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{
		cmd:    cmd,
		events: make(chan Event, eventBuffer),
	}

	var pumps sync.WaitGroup
	pumps.Add(2)
	go p.readPump(stdout, EventStdout, &pumps)
	go p.readPump(stderr, EventStderr, &pumps)
	go p.waitExit(&pumps)

	return p, nil
}

// readPump forwards chunks from r until EOF or a read error.
func (p *Process) readPump(r io.Reader, typ EventType, done *sync.WaitGroup) {
	defer done.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.events <- Event{Type: typ, Data: string(buf[:n])}
		}
		if err != nil {
			return
		}
	}
}

// waitExit reaps the child once both pipes are drained, then emits
// EventExited and closes the events channel.
func (p *Process) waitExit(pumps *sync.WaitGroup) {
	pumps.Wait()
	_ = p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()

	p.events <- Event{Type: EventExited, ExitCode: p.cmd.ProcessState.ExitCode()}
	close(p.events)
}

func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *Process) Events() <-chan Event { return p.events }

// Kill sends SIGTERM. Killing an exited process is a no-op.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited {
		return nil
	}
	if p.cmd.Process == nil {
		return errNotStarted
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}
