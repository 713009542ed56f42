package format

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdout should get terminal formatting.
// It is false when stdout is piped, NO_COLOR is set, or TERM is "dumb" or empty.
func IsTTY() bool {
	return IsStyledTerminal(os.Stdout)
}

// IsStyledTerminal applies the IsTTY rules to f.
func IsStyledTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	termEnv := os.Getenv("TERM")
	if termEnv == "dumb" || termEnv == "" {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
