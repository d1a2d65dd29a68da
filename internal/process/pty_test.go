//go:build !windows

package process

import (
	"strings"
	"testing"
)

// TestStartPTYOutput spawns "echo hello-pty" on a PTY and checks the merged
// output and exit status.
func TestStartPTYOutput(t *testing.T) {
	p, err := StartPTY(Spec{Path: "echo", Args: []string{"hello-pty"}}, 0, 0)
	if err != nil {
		t.Fatalf("StartPTY: %v", err)
	}

	stdout, stderr, code := collect(t, p)
	if !strings.Contains(stdout, "hello-pty") {
		t.Errorf("expected output to contain %q, got %q", "hello-pty", stdout)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want empty for a PTY", stderr)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestPTYSpawnerKill(t *testing.T) {
	h, err := PTYSpawner{Cols: 80, Rows: 24}.Spawn(Spec{Path: "sleep", Args: []string{"10"}})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := h.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	_, _, code := collect(t, h)
	if code != -1 {
		t.Errorf("exit code = %d, want -1", code)
	}
}
