package claude

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Status reports whether the claude executable responds on this machine.
type Status struct {
	Reachable bool
	Version   string
	Error     string
}

// Probe runs the executable once with --version under a bounded wait and
// reports reachability plus the version string it printed. A missing
// binary, a failing run, and a timeout all come back as unreachable with a
// descriptive message; Probe never returns an error.
func Probe(ctx context.Context, timeout time.Duration) Status {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, Locate(), "--version")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Status{Error: "version check timed out"}
	}
	if err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		return Status{Error: message}
	}

	return Status{
		Reachable: true,
		Version:   strings.TrimSpace(stdout.String()),
	}
}
