package process

import (
	shellquote "github.com/kballard/go-shellquote"
)

// EventType distinguishes the kind of event produced by a running process.
type EventType int

const (
	// EventStdout carries a chunk read from the process's standard output
	// (or from the terminal when attached to a PTY).
	EventStdout EventType = iota
	// EventStderr carries a chunk read from standard error.
	EventStderr
	// EventExited is the last event; the channel is closed after it.
	EventExited
)

func (t EventType) String() string {
	switch t {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Event is a single notification emitted by a Handle.
type Event struct {
	Type     EventType
	Data     string
	ExitCode int
}

// Spec describes the process to start.
type Spec struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// CommandLine renders the spec as a shell-quoted command line.
func (s Spec) CommandLine() string {
	return shellquote.Join(append([]string{s.Path}, s.Args...)...)
}

// Handle is a started process.
type Handle interface {
	PID() int
	// Events delivers output chunks and a final EventExited, then closes.
	Events() <-chan Event
	// Kill asks the process to terminate. It does not wait for the exit.
	Kill() error
}

// Spawner starts processes.
type Spawner interface {
	Spawn(spec Spec) (Handle, error)
}
