// Package service coordinates chat runs: request validation, workspace
// resolution, run identity, transcript wiring, and handing the pipeline a
// stream to fill. Transports stay thin on top of it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codedeck/codedeck/internal/claude"
	"github.com/codedeck/codedeck/internal/domain"
	"github.com/codedeck/codedeck/internal/storage"
	"github.com/codedeck/codedeck/internal/stream"
)

var (
	ErrWorkspaceOutsideRoot = errors.New("workspace path escapes the workspace root")
	ErrWorkspaceNotFound    = errors.New("workspace directory does not exist")
	ErrTranscriptsDisabled  = errors.New("transcripts are not enabled")
)

// ChatParams is one inbound chat request, already mapped to domain types.
type ChatParams struct {
	Message       string
	WorkspacePath string
	History       []domain.ConversationTurn
}

// RunSpec carries everything a starter needs to drive one run.
type RunSpec struct {
	ID         string
	Message    string
	History    []domain.ConversationTurn
	WorkingDir string
	Transcript claude.TranscriptSink
}

// RunStarter launches the pipeline for one run and must finish the sink on
// every path. The default starter spawns the real CLI; tests inject fakes.
type RunStarter func(ctx context.Context, run RunSpec, out claude.EventSink)

// Run is a validated chat run that has not begun yet. Subscribe to Stream
// first, then call Start; this ordering guarantees no event, not even an
// instant spawn failure, slips out before anyone is listening.
type Run struct {
	ID     string
	Stream *stream.Stream

	launch func(ctx context.Context)
	once   sync.Once
}

// Start launches the pipeline in the background. Idempotent; only the
// first call does anything. Cancelling ctx terminates the process.
func (r *Run) Start(ctx context.Context) {
	r.once.Do(func() {
		go r.launch(ctx)
	})
}

// Config configures the chat service.
type Config struct {
	WorkspaceRoot   string
	TranscriptStore *storage.TranscriptStore
	TerminateGrace  time.Duration
	ProbeTimeout    time.Duration
	StreamBuffer    int

	// Starter overrides the pipeline; nil means spawn the real CLI.
	Starter RunStarter

	Logger *slog.Logger
}

type ChatService struct {
	cfg     Config
	starter RunStarter
	log     *slog.Logger
}

func NewChatService(cfg Config) *ChatService {
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = 5 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = 256
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = "."
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &ChatService{cfg: cfg, log: log}
	s.starter = cfg.Starter
	if s.starter == nil {
		s.starter = s.spawnCLI
	}
	return s
}

// StreamBuffer is the subscription buffer transports should use.
func (s *ChatService) StreamBuffer() int {
	return s.cfg.StreamBuffer
}

// StartChat validates the request and prepares a run. The caller
// subscribes to the run's stream and then calls Start; all further
// outcomes, including failures, arrive as events. An error here means
// nothing was started.
func (s *ChatService) StartChat(params ChatParams) (*Run, error) {
	if strings.TrimSpace(params.Message) == "" {
		return nil, claude.ErrEmptyMessage
	}

	workdir, err := s.resolveWorkspace(params.WorkspacePath)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	out := stream.New()

	var transcript *storage.RunTranscript
	if s.cfg.TranscriptStore != nil {
		transcript, err = s.cfg.TranscriptStore.StartRun(runID)
		if err != nil {
			s.log.Warn("transcript unavailable for run", "run_id", runID, "error", err)
			transcript = nil
		}
	}

	spec := RunSpec{
		ID:         runID,
		Message:    params.Message,
		History:    params.History,
		WorkingDir: workdir,
	}
	if transcript != nil {
		spec.Transcript = transcript
	}

	s.log.Info("chat run prepared",
		"run_id", runID,
		"workdir", workdir,
		"history_turns", len(params.History))

	launch := func(ctx context.Context) {
		if transcript != nil {
			defer func() {
				if err := transcript.Close(); err != nil {
					s.log.Warn("failed to close transcript", "run_id", runID, "error", err)
				}
			}()
		}
		s.starter(ctx, spec, out)
	}

	return &Run{ID: runID, Stream: out, launch: launch}, nil
}

// Status probes the CLI once under the configured bound.
func (s *ChatService) Status(ctx context.Context) claude.Status {
	return claude.Probe(ctx, s.cfg.ProbeTimeout)
}

// Transcript returns a run's recorded protocol traffic.
func (s *ChatService) Transcript(runID string) ([]storage.TranscriptRecord, error) {
	if s.cfg.TranscriptStore == nil {
		return nil, ErrTranscriptsDisabled
	}
	return s.cfg.TranscriptStore.Read(runID)
}

func (s *ChatService) spawnCLI(ctx context.Context, run RunSpec, out claude.EventSink) {
	runner := claude.NewRunner(claude.RunnerConfig{
		WorkingDir:     run.WorkingDir,
		TerminateGrace: s.cfg.TerminateGrace,
		Transcript:     run.Transcript,
		Logger:         s.log.With("run_id", run.ID),
	})
	runner.Run(ctx, run.Message, run.History, out)
}

// resolveWorkspace confines the requested path to the workspace root. A
// relative path is joined onto the root; an absolute path must already live
// under it.
func (s *ChatService) resolveWorkspace(requested string) (string, error) {
	root, err := filepath.Abs(s.cfg.WorkspaceRoot)
	if err != nil {
		return "", err
	}
	if requested == "" {
		return root, nil
	}

	resolved := requested
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(root, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrWorkspaceOutsideRoot
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", ErrWorkspaceNotFound
	}
	return resolved, nil
}
