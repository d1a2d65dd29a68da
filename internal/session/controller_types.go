package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/bokehpreview/internal/interpreter"
	"github.com/user/bokehpreview/internal/process"
)

var (
	// ErrStopped is returned once the controller has been deactivated.
	ErrStopped = errors.New("session: controller stopped")
	// ErrEmptyDir is returned when a start request names no directory.
	ErrEmptyDir = errors.New("session: server directory is required")
)

// State is the controller's process state.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "running":
		*s = StateRunning
	default:
		return fmt.Errorf("session: unknown state %q", text)
	}
	return nil
}

// Output is the append-only sink for diagnostics and server output.
type Output interface {
	Append(text string)
	AppendLine(text string)
}

// Resolver picks the interpreter for each spawn.
type Resolver interface {
	Resolve(out interpreter.Output) string
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	State     State      `json:"state"`
	PID       int        `json:"pid,omitempty"`
	Dir       string     `json:"dir,omitempty"`
	Pending   string     `json:"pending,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Spawns    int        `json:"spawns"`
	LastExit  *int       `json:"last_exit,omitempty"`
}

// Options configures a Controller.
type Options struct {
	Spawner  process.Spawner
	Resolver Resolver
	// Output returns the log surface. It is called on first use, so the
	// surface is only created when something is written to it.
	Output func() Output
	// DevMode appends --dev to the serve arguments.
	DevMode bool
	Env     []string
	// OnChange is called from the event loop after every state change. It
	// must not block.
	OnChange func(Status)
	Now      func() time.Time
}

// ServeArgs returns the interpreter arguments that serve dir.
func ServeArgs(dir string, dev bool) []string {
	args := []string{"-m", "bokeh", "serve", dir}
	if dev {
		args = append(args, "--dev")
	}
	return args
}

// inputs delivered to the event loop

type startInput struct {
	dir   string
	reply chan error
}

type processInput struct {
	handle process.Handle
	event  process.Event
}

type deactivateInput struct {
	exited chan struct{}
}
