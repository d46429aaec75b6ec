package claude

import (
	"bytes"
	"strings"
)

// LineBuffer reassembles newline-terminated lines from arbitrarily chunked
// reads. Chunk boundaries never affect line boundaries: a line split across
// chunks is held back until its terminator arrives. One instance serves one
// stream; not safe for concurrent use.
type LineBuffer struct {
	rest []byte
}

// Append adds one chunk and returns the complete lines it finished, in
// arrival order. Lines are whitespace-trimmed; lines that are empty after
// trimming are dropped. Any trailing fragment without a newline is retained
// for the next chunk.
func (b *LineBuffer) Append(chunk []byte) []string {
	b.rest = append(b.rest, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(b.rest, '\n')
		if i < 0 {
			return lines
		}
		line := strings.TrimSpace(string(b.rest[:i]))
		b.rest = b.rest[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
}

// Flush returns the unterminated tail, if any. Called once at stream end so
// a final line without a trailing newline is not lost.
func (b *LineBuffer) Flush() (string, bool) {
	line := strings.TrimSpace(string(b.rest))
	b.rest = nil
	if line == "" {
		return "", false
	}
	return line, true
}
