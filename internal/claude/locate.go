package claude

import (
	"os"
	"path/filepath"
)

// EnvCLIPath overrides executable discovery when set. The value is used
// verbatim, without an existence check.
const EnvCLIPath = "CLAUDE_CLI_PATH"

const defaultCommand = "claude"

// Locate resolves the claude executable to spawn: the environment override
// first, then well-known install locations, then the bare command name so
// PATH lookup gets a chance. Locate never fails; a missing binary surfaces
// later as a spawn error.
func Locate() string {
	if path := os.Getenv(EnvCLIPath); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	for _, candidate := range installCandidates(home) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	return defaultCommand
}

// installCandidates lists the probe locations in priority order. The native
// installer's location comes before package-manager ones.
func installCandidates(home string) []string {
	var candidates []string
	if home != "" {
		candidates = append(candidates,
			filepath.Join(home, ".claude", "local", "claude"),
			filepath.Join(home, ".local", "bin", "claude"),
		)
	}
	return append(candidates,
		"/usr/local/bin/claude",
		"/opt/homebrew/bin/claude",
	)
}
