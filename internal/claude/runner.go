// Package claude spawns the Claude Code CLI as a subprocess and converts
// its stream-json output into the canonical event vocabulary clients
// consume. One Runner invocation owns one process; nothing is shared across
// requests.
package claude

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codedeck/codedeck/internal/domain"
	"github.com/codedeck/codedeck/internal/process"
)

// cliArgs request non-interactive, machine-readable, streaming output. The
// prompt arrives on stdin, so no positional argument.
var cliArgs = []string{
	"--print",
	"--verbose",
	"--output-format", "stream-json",
	"--dangerously-skip-permissions",
}

// EventSink receives the canonical events a run produces. Push after the
// sink has finished must be a silent no-op, and Finish must be idempotent;
// the runner leans on both.
type EventSink interface {
	Push(event domain.Event)
	Finish()
	OnCancel(hook func())
}

// TranscriptSink records raw protocol traffic for offline diagnosis. All
// methods are called from the run's own goroutines; a nil sink disables
// recording.
type TranscriptSink interface {
	RecordLine(line string)
	RecordEvent(event domain.Event)
	RecordStderr(text string)
}

// RunnerConfig configures one run.
type RunnerConfig struct {
	// CLIPath overrides executable discovery. Empty means Locate().
	CLIPath string

	// WorkingDir is the workspace the tool operates in.
	WorkingDir string

	// TerminateGrace is how long a terminated process gets between SIGTERM
	// and SIGKILL.
	TerminateGrace time.Duration

	Transcript TranscriptSink
	Logger     *slog.Logger
}

// Runner drives one request through the pipeline: compose the prompt, spawn
// the tool, split stdout into lines, translate lines into events, and push
// them into the sink. Stderr is watched concurrently for auth failures.
type Runner struct {
	cfg RunnerConfig
	log *slog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = 5 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, log: log}
}

// Run streams one request to completion. Every outcome, including a failed
// spawn, ends with the sink finished; callers never wait on a stream that
// will not close. Cancelling ctx or the sink kills the process.
func (r *Runner) Run(ctx context.Context, message string, history []domain.ConversationTurn, out EventSink) {
	defer out.Finish()

	if strings.TrimSpace(message) == "" {
		out.Push(domain.NewErrorEvent(ErrEmptyMessage.Error(), ""))
		return
	}

	cliPath := r.cfg.CLIPath
	if cliPath == "" {
		cliPath = Locate()
	}

	proc, err := process.Start(ctx, process.Config{
		Command:     cliPath,
		Args:        cliArgs,
		WorkingDir:  r.cfg.WorkingDir,
		Environment: spawnEnvironment(),
		Stdin:       ComposePrompt(message, history),
	})
	if err != nil {
		r.log.Error("failed to start claude", "path", cliPath, "error", err)
		out.Push(domain.NewErrorEvent(fmt.Sprintf("failed to start claude: %v", err), SpawnErrorCode))
		return
	}

	r.log.Info("claude started", "path", cliPath, "workdir", r.cfg.WorkingDir)

	// Client disconnects terminate the process; the exit then flows back
	// through the normal classification below.
	out.OnCancel(func() {
		proc.Terminate(r.cfg.TerminateGrace)
	})

	monitor := &StderrMonitor{}
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		buf := make([]byte, 4096)
		for {
			n, err := proc.Stderr().Read(buf)
			if n > 0 {
				if event, ok := monitor.Scan(buf[:n]); ok {
					r.log.Warn("claude reported an authentication failure")
					out.Push(event)
				}
			}
			if err != nil {
				return
			}
		}
	}()

	translator := NewTranslator(r.log)
	lines := &LineBuffer{}
	buf := make([]byte, 32*1024)
	for {
		n, err := proc.Stdout().Read(buf)
		if n > 0 {
			for _, line := range lines.Append(buf[:n]) {
				r.emit(translator, line, out)
			}
		}
		if err != nil {
			break
		}
	}
	if line, ok := lines.Flush(); ok {
		r.emit(translator, line, out)
	}

	// Both pipes are drained; safe to reap the process now.
	<-stderrDone
	code, waitErr := proc.Wait()

	if r.cfg.Transcript != nil {
		if text := monitor.Text(); text != "" {
			r.cfg.Transcript.RecordStderr(text)
		}
	}

	switch {
	case waitErr != nil:
		r.log.Error("claude wait failed", "error", waitErr)
		out.Push(domain.NewErrorEvent(fmt.Sprintf("claude did not exit cleanly: %v", waitErr), ""))
	case code != 0:
		r.log.Warn("claude exited with failure", "code", code)
		message := monitor.Text()
		if message == "" {
			message = fmt.Sprintf("claude exited with code %d", code)
		}
		out.Push(domain.NewErrorEvent(message, ""))
	default:
		r.log.Info("claude finished", "code", code)
	}
}

func (r *Runner) emit(translator *Translator, line string, out EventSink) {
	if r.cfg.Transcript != nil {
		r.cfg.Transcript.RecordLine(line)
	}
	event, ok := translator.Translate(line)
	if !ok {
		return
	}
	if r.cfg.Transcript != nil {
		r.cfg.Transcript.RecordEvent(event)
	}
	out.Push(event)
}

// spawnEnvironment returns the overrides merged into the inherited
// environment: a predictable PATH covering the usual install locations, an
// explicit HOME so the tool finds its credentials, and no color codes in
// the output. The process gets pipes, never a terminal.
func spawnEnvironment() map[string]string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	paths := []string{"/usr/local/bin", "/usr/bin", "/bin", "/opt/homebrew/bin"}
	if home != "" {
		paths = append([]string{
			filepath.Join(home, ".claude", "local"),
			filepath.Join(home, ".local", "bin"),
		}, paths...)
	}

	env := map[string]string{
		"PATH":     strings.Join(paths, string(os.PathListSeparator)),
		"NO_COLOR": "1",
	}
	if home != "" {
		env["HOME"] = home
	}
	return env
}
