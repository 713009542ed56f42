package format

import (
	"os"
	"testing"
)

func TestIsStyledTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	t.Setenv("TERM", "xterm-256color")
	if IsStyledTerminal(f) {
		t.Error("regular file must not be treated as a terminal")
	}

	t.Setenv("NO_COLOR", "1")
	if IsStyledTerminal(os.Stdout) {
		t.Error("NO_COLOR must disable styling")
	}

	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "dumb")
	if IsStyledTerminal(os.Stdout) {
		t.Error("dumb terminal must disable styling")
	}
}
