package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codedeck/codedeck/internal/claude"
	"github.com/codedeck/codedeck/internal/domain"
	"github.com/codedeck/codedeck/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartChatRejectsEmptyMessage(t *testing.T) {
	started := false
	svc := NewChatService(Config{
		WorkspaceRoot: t.TempDir(),
		Starter: func(ctx context.Context, run RunSpec, out claude.EventSink) {
			started = true
			out.Finish()
		},
		Logger: discardLogger(),
	})

	_, err := svc.StartChat(ChatParams{Message: "   "})
	if !errors.Is(err, claude.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if started {
		t.Error("starter must not run for a rejected request")
	}
}

func TestStartChatStreamsToCompletion(t *testing.T) {
	svc := NewChatService(Config{
		WorkspaceRoot: t.TempDir(),
		Starter: func(ctx context.Context, run RunSpec, out claude.EventSink) {
			out.Push(domain.NewTextEvent("hello"))
			out.Finish()
		},
		Logger: discardLogger(),
	})

	run, err := svc.StartChat(ChatParams{Message: "hi"})
	if err != nil {
		t.Fatalf("failed to start chat: %v", err)
	}
	if run.ID == "" {
		t.Error("expected a run id")
	}

	recv := run.Stream.Subscribe(svc.StreamBuffer())
	run.Start(context.Background())
	var events []domain.Event
	for event := range recv.C {
		events = append(events, event)
	}

	if len(events) != 2 {
		t.Fatalf("expected Text and Done, got %v", events)
	}
	if events[1].Type != domain.EventTypeDone {
		t.Errorf("expected Done last, got %v", events[1].Type)
	}
}

func TestStartChatPassesRunSpec(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "proj"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	var got RunSpec
	done := make(chan struct{})
	svc := NewChatService(Config{
		WorkspaceRoot: root,
		Starter: func(ctx context.Context, run RunSpec, out claude.EventSink) {
			got = run
			out.Finish()
			close(done)
		},
		Logger: discardLogger(),
	})

	history := []domain.ConversationTurn{{Role: domain.TurnRoleUser, Content: "before"}}
	run, err := svc.StartChat(ChatParams{
		Message:       "hi",
		WorkspacePath: "proj",
		History:       history,
	})
	if err != nil {
		t.Fatalf("failed to start chat: %v", err)
	}
	run.Start(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("starter never ran")
	}

	if got.Message != "hi" {
		t.Errorf("message not passed through: %q", got.Message)
	}
	if got.WorkingDir != filepath.Join(root, "proj") {
		t.Errorf("workspace not resolved against root: %q", got.WorkingDir)
	}
	if len(got.History) != 1 || got.History[0].Content != "before" {
		t.Errorf("history not passed through: %v", got.History)
	}
}

func TestStartChatRejectsEscapingWorkspace(t *testing.T) {
	svc := NewChatService(Config{
		WorkspaceRoot: t.TempDir(),
		Starter: func(ctx context.Context, run RunSpec, out claude.EventSink) {
			out.Finish()
		},
		Logger: discardLogger(),
	})

	for _, path := range []string{"..", "../outside", "a/../../b"} {
		_, err := svc.StartChat(ChatParams{Message: "hi", WorkspacePath: path})
		if !errors.Is(err, ErrWorkspaceOutsideRoot) {
			t.Errorf("path %q: expected ErrWorkspaceOutsideRoot, got %v", path, err)
		}
	}
}

func TestStartChatRejectsMissingWorkspace(t *testing.T) {
	svc := NewChatService(Config{
		WorkspaceRoot: t.TempDir(),
		Starter: func(ctx context.Context, run RunSpec, out claude.EventSink) {
			out.Finish()
		},
		Logger: discardLogger(),
	})

	_, err := svc.StartChat(ChatParams{Message: "hi", WorkspacePath: "ghost"})
	if !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("expected ErrWorkspaceNotFound, got %v", err)
	}
}

func TestStartChatRecordsTranscript(t *testing.T) {
	store, err := storage.NewTranscriptStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	svc := NewChatService(Config{
		WorkspaceRoot:   t.TempDir(),
		TranscriptStore: store,
		Starter: func(ctx context.Context, run RunSpec, out claude.EventSink) {
			if run.Transcript != nil {
				run.Transcript.RecordLine(`{"type":"system"}`)
			}
			out.Finish()
		},
		Logger: discardLogger(),
	})

	run, err := svc.StartChat(ChatParams{Message: "hi"})
	if err != nil {
		t.Fatalf("failed to start chat: %v", err)
	}

	recv := run.Stream.Subscribe(16)
	run.Start(context.Background())
	for range recv.C {
	}

	// The transcript closes after the starter returns; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		records, err := svc.Transcript(run.ID)
		if err == nil && len(records) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("transcript never appeared: records=%v err=%v", records, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTranscriptDisabled(t *testing.T) {
	svc := NewChatService(Config{
		WorkspaceRoot: t.TempDir(),
		Starter: func(ctx context.Context, run RunSpec, out claude.EventSink) {
			out.Finish()
		},
		Logger: discardLogger(),
	})

	if _, err := svc.Transcript("some-run"); !errors.Is(err, ErrTranscriptsDisabled) {
		t.Errorf("expected ErrTranscriptsDisabled, got %v", err)
	}
}
