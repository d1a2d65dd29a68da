package process

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	creackpty "github.com/creack/pty"
)

const ptyDrainTimeout = 2 * time.Second

// PTYSpawner starts processes attached to a pseudo-terminal so that tools
// which only colorize output on a TTY keep doing so. stdout and stderr are
// merged and reported as EventStdout.
type PTYSpawner struct {
	Cols uint16
	Rows uint16
}

func (s PTYSpawner) Spawn(spec Spec) (Handle, error) {
	return StartPTY(spec, s.Cols, s.Rows)
}

// PTYProcess is a child running inside a PTY.
type PTYProcess struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	events chan Event

	mu     sync.Mutex
	exited bool
}

// StartPTY launches spec inside a new PTY. Zero sizes default to 120x30.
func StartPTY(spec Spec, cols, rows uint16) (*PTYProcess, error) {
	if spec.Path == "" {
		return nil, errors.New("process: path must not be empty")
	}
	if cols == 0 {
		cols = 120
	}
	if rows == 0 {
		rows = 30
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}

	ptmx, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, err
	}

	p := &PTYProcess{
		cmd:    cmd,
		ptmx:   ptmx,
		events: make(chan Event, eventBuffer),
	}

	readDone := make(chan struct{})
	go p.readPump(readDone)
	go p.waitExit(readDone)

	return p, nil
}

func (p *PTYProcess) readPump(done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 4096)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			p.events <- Event{Type: EventStdout, Data: string(buf[:n])}
		}
		if err != nil {
			return
		}
	}
}

// waitExit reaps the child, gives the read pump a bounded time to drain the
// terminal, then emits EventExited.
func (p *PTYProcess) waitExit(readDone <-chan struct{}) {
	_ = p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()

	select {
	case <-readDone:
	case <-time.After(ptyDrainTimeout):
	}
	_ = p.ptmx.Close()
	<-readDone

	p.events <- Event{Type: EventExited, ExitCode: p.cmd.ProcessState.ExitCode()}
	close(p.events)
}

func (p *PTYProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *PTYProcess) Events() <-chan Event { return p.events }

// Kill sends SIGTERM. Killing an exited process is a no-op.
func (p *PTYProcess) Kill() error {
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
