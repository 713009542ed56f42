package permissions

import (
	"fmt"
	"strings"
)

// PermissionError is returned when a tool is rejected by a ToolPolicy.
type PermissionError struct {
	// Type is "tools.blocked" or "tools.denied"
	Type string

	// Resource is the tool name that was rejected
	Resource string

	// Allowed is the list of allowed patterns
	Allowed []string

	// Blocked is the list of blocked patterns
	Blocked []string

	// Message provides additional context
	Message string
}

// Error implements the error interface.
// The message names the tool and the patterns, but does not reveal whether
// the tool exists on the server.
func (e *PermissionError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("permission denied: %s", e.Type))

	if e.Resource != "" {
		parts = append(parts, fmt.Sprintf("tool: %s", e.Resource))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if len(e.Allowed) > 0 {
		parts = append(parts, fmt.Sprintf("allowed patterns: [%s]", strings.Join(e.Allowed, ", ")))
	}

	if len(e.Blocked) > 0 {
		parts = append(parts, fmt.Sprintf("blocked patterns: [%s]", strings.Join(e.Blocked, ", ")))
	}

	return strings.Join(parts, "; ")
}

// IsUserVisible implements errors.UserVisibleError.
func (e *PermissionError) IsUserVisible() bool { return true }

// UserMessage implements errors.UserVisibleError.
func (e *PermissionError) UserMessage() string {
	return fmt.Sprintf("Tool %q is not permitted by the local tool policy", e.Resource)
}

// Suggestion implements errors.UserVisibleError.
func (e *PermissionError) Suggestion() string {
	return "Check mcp.allowed_tools and mcp.blocked_tools in the configuration"
}

// IsPermissionError returns true if the error is a PermissionError.
func IsPermissionError(err error) bool {
	_, ok := err.(*PermissionError)
	return ok
}
