package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Config holds configuration for starting a process.
type Config struct {
	Command    string
	Args       []string
	WorkingDir string

	// Environment entries override the inherited environment.
	Environment map[string]string

	// Stdin, when non-empty, is written to the process's standard input,
	// which is then closed so the tool sees EOF.
	Stdin string
}

// Manager owns one subprocess for the duration of one request. The handle is
// never shared across requests; whoever spawned it terminates it.
type Manager struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	waitOnce sync.Once
	waitErr  error
	waitDone chan struct{}

	termOnce sync.Once
}

// Start creates and starts a process with stdin/stdout/stderr pipes. The
// child talks to pipes only; it never gets a terminal. It leads its own
// process group so termination reaches any children it spawns, which would
// otherwise keep the output pipes open.
func Start(ctx context.Context, config Config) (*Manager, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}

	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	cmd.Env = mergeEnv(config.Environment)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	m := &Manager{
		cmd:      cmd,
		stdout:   stdout,
		stderr:   stderr,
		waitDone: make(chan struct{}),
	}
	cmd.Cancel = func() error {
		return m.signal(syscall.SIGKILL)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	// Write input from a goroutine: input larger than the pipe buffer
	// would otherwise block until the child starts reading.
	go func() {
		if config.Stdin != "" {
			_, _ = io.WriteString(stdin, config.Stdin)
		}
		_ = stdin.Close()
	}()

	return m, nil
}

// mergeEnv flattens the inherited environment with overrides applied, so an
// override replaces the inherited value instead of duplicating the key.
func mergeEnv(overrides map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	maps.Copy(merged, overrides)

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	return env
}

// Stdout returns the process's stdout pipe.
func (m *Manager) Stdout() io.ReadCloser {
	return m.stdout
}

// Stderr returns the process's stderr pipe.
func (m *Manager) Stderr() io.ReadCloser {
	return m.stderr
}

// Wait blocks until the process exits and returns its exit code. Safe to
// call from multiple goroutines; the underlying wait happens exactly once.
// Callers must finish reading Stdout and Stderr before calling Wait.
func (m *Manager) Wait() (int, error) {
	m.waitOnce.Do(func() {
		m.waitErr = m.cmd.Wait()
		close(m.waitDone)
	})
	<-m.waitDone

	if m.waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(m.waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, m.waitErr
}

// Terminate requests shutdown: SIGTERM now, SIGKILL once the grace period
// runs out. Idempotent, and a no-op after the process has already exited.
// Termination can be triggered by natural exit, the client cancelling, or a
// spawn-time error path, in any order.
func (m *Manager) Terminate(grace time.Duration) {
	m.termOnce.Do(func() {
		if m.cmd.Process == nil {
			return
		}
		if err := m.signal(syscall.SIGTERM); err != nil {
			// Already exited.
			return
		}
		go func() {
			select {
			case <-m.waitDone:
			case <-time.After(grace):
				_ = m.signal(syscall.SIGKILL)
			}
		}()
	})
}

// Kill immediately terminates the process with SIGKILL.
func (m *Manager) Kill() error {
	if m.cmd.Process == nil {
		return nil
	}
	return m.signal(syscall.SIGKILL)
}

// signal delivers sig to the whole process group, falling back to the
// direct child if the group is already gone.
func (m *Manager) signal(sig syscall.Signal) error {
	if err := syscall.Kill(-m.cmd.Process.Pid, sig); err == nil {
		return nil
	}
	return m.cmd.Process.Signal(sig)
}
