package daemon

import (
	"log/slog"
	"os/exec"
	"runtime"
)

// OpenURL opens url with the platform's default handler.
func OpenURL(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Warn("failed to open browser", "url", url, "error", err)
	}
}
