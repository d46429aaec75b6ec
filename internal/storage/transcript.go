// Package storage persists per-run protocol transcripts: the raw lines the
// tool emitted, the canonical events they became, and the stderr tail. One
// JSONL file per run, append-only, tolerant of torn writes on readback.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/codedeck/codedeck/internal/domain"
)

var (
	ErrRunNotFound        = errors.New("run transcript not found")
	ErrInvalidRunID       = errors.New("invalid run id")
	ErrSymlinkNotAllowed  = errors.New("symlinks not allowed for transcript files")
	ErrTranscriptTooLarge = errors.New("transcript file too large")
)

const maxTranscriptSize = 50 * 1024 * 1024 // 50MB

var runIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateRunID(id string) error {
	if !runIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %s", ErrInvalidRunID, id)
	}
	return nil
}

// TranscriptKind says what a record captured.
type TranscriptKind string

const (
	TranscriptKindLine   TranscriptKind = "line"
	TranscriptKindEvent  TranscriptKind = "event"
	TranscriptKindStderr TranscriptKind = "stderr"
)

// TranscriptRecord is one line of a run's JSONL transcript.
type TranscriptRecord struct {
	Sequence  int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      TranscriptKind  `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// TranscriptCorruptionError reports records that could not be decoded; the
// readable remainder still comes back alongside it.
type TranscriptCorruptionError struct {
	RunID        string
	CorruptLines int
}

func (e *TranscriptCorruptionError) Error() string {
	return fmt.Sprintf("transcript for run %s has %d corrupt line(s)", e.RunID, e.CorruptLines)
}

// TranscriptStore owns the transcript directory.
type TranscriptStore struct {
	baseDir string
}

func NewTranscriptStore(baseDir string) (*TranscriptStore, error) {
	runsDir := filepath.Join(baseDir, "runs")
	if err := os.MkdirAll(runsDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	// Tighten permissions if the directory already existed.
	if info, err := os.Stat(runsDir); err == nil {
		if info.Mode().Perm()&0o077 != 0 {
			_ = os.Chmod(runsDir, 0o700)
		}
	}

	return &TranscriptStore{baseDir: baseDir}, nil
}

func (s *TranscriptStore) runPath(id string) string {
	return filepath.Join(s.baseDir, "runs", id+".jsonl")
}

// StartRun opens the transcript for one run, continuing the sequence if a
// file for that id already exists.
func (s *TranscriptStore) StartRun(runID string) (*RunTranscript, error) {
	if err := validateRunID(runID); err != nil {
		return nil, err
	}

	path := s.runPath(runID)
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, ErrSymlinkNotAllowed
	}

	seq, err := maxSequence(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}

	return &RunTranscript{runID: runID, f: f, seq: seq}, nil
}

// Read returns a run's records in append order. Corrupt lines are skipped;
// if any were found the records come back with a TranscriptCorruptionError.
func (s *TranscriptStore) Read(runID string) ([]TranscriptRecord, error) {
	if err := validateRunID(runID); err != nil {
		return nil, err
	}

	path := s.runPath(runID)
	if info, err := os.Stat(path); err == nil && info.Size() > maxTranscriptSize {
		return nil, ErrTranscriptTooLarge
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	records := make([]TranscriptRecord, 0)
	corruptLines := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec TranscriptRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			corruptLines++
			continue
		}
		if rec.Sequence <= 0 || rec.Timestamp.IsZero() {
			corruptLines++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if corruptLines > 0 {
		return records, &TranscriptCorruptionError{RunID: runID, CorruptLines: corruptLines}
	}
	return records, nil
}

func maxSequence(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var maxSeq int64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec TranscriptRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Sequence > maxSeq {
			maxSeq = rec.Sequence
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return maxSeq, nil
}

// RunTranscript appends records for one run. The Record methods are best
// effort: a failed write drops the record rather than disturbing the
// pipeline that called it.
type RunTranscript struct {
	runID string
	mu    sync.Mutex
	f     *os.File
	seq   int64
}

// eventRecord is the stored shape of a canonical event.
type eventRecord struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (rt *RunTranscript) RecordLine(line string) {
	// Store well-formed protocol lines as raw JSON so transcripts stay
	// greppable; anything else is stored as a plain string.
	var payload json.RawMessage
	if json.Valid([]byte(line)) {
		payload = json.RawMessage(line)
	} else {
		payload, _ = json.Marshal(line)
	}
	_ = rt.append(TranscriptKindLine, time.Now(), payload)
}

func (rt *RunTranscript) RecordEvent(event domain.Event) {
	payload, err := json.Marshal(eventRecord{Type: event.Type.String(), Data: event.Data})
	if err != nil {
		return
	}
	_ = rt.append(TranscriptKindEvent, event.Timestamp, payload)
}

func (rt *RunTranscript) RecordStderr(text string) {
	payload, err := json.Marshal(text)
	if err != nil {
		return
	}
	_ = rt.append(TranscriptKindStderr, time.Now(), payload)
}

func (rt *RunTranscript) append(kind TranscriptKind, timestamp time.Time, payload json.RawMessage) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.f == nil {
		return errors.New("transcript closed")
	}

	rt.seq++
	record := TranscriptRecord{
		Sequence:  rt.seq,
		Timestamp: timestamp,
		Kind:      kind,
		Payload:   payload,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript record: %w", err)
	}
	if _, err := rt.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write transcript record: %w", err)
	}
	return nil
}

// Close flushes and releases the transcript file. Records arriving after
// Close are dropped.
func (rt *RunTranscript) Close() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.f == nil {
		return nil
	}
	err := rt.f.Sync()
	if closeErr := rt.f.Close(); err == nil {
		err = closeErr
	}
	rt.f = nil
	return err
}
