// Package format renders CLI output, styling it only when stdout is a TTY.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
)

const (
	maxJSONSize     = 10 * 1024 * 1024 // 10MB
	maxMarkdownSize = 1024 * 1024      // 1MB
)

// ansiEscapeRegex matches ANSI escape sequences for sanitization.
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// sanitizeANSI removes ANSI escape sequences from a string.
func sanitizeANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// enforceSize checks if content exceeds the maximum size for its format.
func enforceSize(content string, format string, maxSize int) error {
	if len(content) > maxSize {
		return fmt.Errorf("output size (%d bytes) exceeds maximum for %s format (%d bytes)", len(content), format, maxSize)
	}
	return nil
}

// Markdown renders server-provided markdown, such as a tool description.
// Escape sequences in the input are stripped first. Without a TTY, or when
// rendering fails, the sanitized text is returned unchanged.
func Markdown(content string, isTTY bool) (string, error) {
	if err := enforceSize(content, "markdown", maxMarkdownSize); err != nil {
		return "", err
	}
	content = sanitizeANSI(content)

	if !isTTY {
		return content, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content, nil
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content, nil
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// JSON pretty-prints v with 2-space indentation, highlighted on a TTY.
func JSON(v any, isTTY bool) (string, error) {
	formatted, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format JSON: %w", err)
	}
	content := string(formatted)
	if err := enforceSize(content, "json", maxJSONSize); err != nil {
		return "", err
	}

	if !isTTY {
		return content, nil
	}

	// Escapes inside JSON strings are already \u001b-encoded by the encoder,
	// so only chroma's own sequences reach the terminal.
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, "json", "terminal256", "monokai"); err != nil {
		return content, nil
	}
	return buf.String(), nil
}
