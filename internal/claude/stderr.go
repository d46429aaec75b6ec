package claude

import (
	"bytes"
	"strings"

	"github.com/codedeck/codedeck/internal/domain"
)

// authPhrases are the stderr fragments that mean the CLI rejected the
// request for lack of credentials. Matching is case-insensitive.
var authPhrases = [][]byte{
	[]byte("not logged in"),
	[]byte("please run /login"),
	[]byte("invalid api key"),
	[]byte("authentication_error"),
}

const (
	// stderrRetainLimit caps how much stderr is kept for transcripts and
	// exit diagnostics; a chatty process keeps only its most recent output.
	stderrRetainLimit = 64 * 1024

	// scanOverlap is how many trailing bytes of lowercased stderr carry
	// over between Scan calls. It must cover the longest auth phrase so a
	// phrase split across chunk boundaries still matches.
	scanOverlap = 32
)

// StderrMonitor retains the tool's recent stderr and watches it for
// authentication failures. One instance serves one process; callers must
// not interleave Scan and Text from different goroutines.
type StderrMonitor struct {
	retained []byte
	window   []byte
	notified bool
}

// Scan folds one stderr chunk into the monitor. If the output now contains
// an authentication-failure phrase, Scan returns the Error event to push;
// only the first match over the process's lifetime fires. Work per call is
// proportional to the chunk, not to everything seen so far.
func (m *StderrMonitor) Scan(chunk []byte) (domain.Event, bool) {
	m.retained = append(m.retained, chunk...)
	if len(m.retained) > stderrRetainLimit {
		m.retained = append(m.retained[:0], m.retained[len(m.retained)-stderrRetainLimit:]...)
	}

	if m.notified {
		return domain.Event{}, false
	}

	m.window = append(m.window, bytes.ToLower(chunk)...)
	matched := false
	for _, phrase := range authPhrases {
		if bytes.Contains(m.window, phrase) {
			matched = true
			break
		}
	}
	if len(m.window) > scanOverlap {
		m.window = append(m.window[:0], m.window[len(m.window)-scanOverlap:]...)
	}
	if !matched {
		return domain.Event{}, false
	}

	m.notified = true
	event := domain.NewErrorEvent(
		"Claude CLI is not authenticated. Run `claude /login` in a terminal and try again.",
		AuthErrorCode,
	)
	return event, true
}

// Text returns the retained stderr, trimmed. When the process wrote more
// than the retention limit only the tail survives.
func (m *StderrMonitor) Text() string {
	return strings.TrimSpace(string(m.retained))
}
