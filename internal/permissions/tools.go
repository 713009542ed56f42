// Package permissions restricts which MCP tools may be listed and called.
//
// A ToolPolicy holds glob patterns (doublestar syntax). Blocked patterns win
// over allowed ones, and an empty allowed list allows every tool that is not
// blocked.
package permissions

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ToolPolicy lists the tool name patterns that are allowed and blocked.
// A nil policy allows everything.
type ToolPolicy struct {
	Allowed []string
	Blocked []string
}

// NewToolPolicy returns nil when both lists are empty.
func NewToolPolicy(allowed, blocked []string) *ToolPolicy {
	if len(allowed) == 0 && len(blocked) == 0 {
		return nil
	}
	return &ToolPolicy{Allowed: allowed, Blocked: blocked}
}

// CheckTool checks if a tool is allowed for use.
// Returns nil if allowed, *PermissionError if denied.
func (p *ToolPolicy) CheckTool(toolName string) error {
	if p == nil {
		return nil
	}

	// Check blocked list first (takes precedence)
	for _, pattern := range p.Blocked {
		// Blocked patterns may be written with or without a leading !
		checkPattern := strings.TrimPrefix(pattern, "!")

		if matchesToolPattern(toolName, checkPattern) {
			return &PermissionError{
				Type:     "tools.blocked",
				Resource: toolName,
				Blocked:  p.Blocked,
				Message:  "tool is in blocked list",
			}
		}
	}

	if len(p.Allowed) == 0 {
		return nil
	}

	for _, pattern := range p.Allowed {
		if matchesToolPattern(toolName, pattern) {
			return nil
		}
	}

	return &PermissionError{
		Type:     "tools.denied",
		Resource: toolName,
		Allowed:  p.Allowed,
		Message:  "tool not in allowed patterns",
	}
}

// Allows reports whether CheckTool accepts toolName.
func (p *ToolPolicy) Allows(toolName string) bool {
	return p.CheckTool(toolName) == nil
}

// FilterAllowedTools keeps the names the policy allows, in order.
func (p *ToolPolicy) FilterAllowedTools(toolNames []string) []string {
	if p == nil {
		return toolNames
	}

	allowed := make([]string, 0, len(toolNames))
	for _, toolName := range toolNames {
		if p.Allows(toolName) {
			allowed = append(allowed, toolName)
		}
	}
	return allowed
}

// ValidatePatterns reports the first malformed pattern.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(strings.TrimPrefix(pattern, "!")) {
			return fmt.Errorf("invalid tool pattern %q", pattern)
		}
	}
	return nil
}

// matchesToolPattern checks if a tool name matches a pattern.
// Supports glob patterns like "list*" or "{get,list}Users".
func matchesToolPattern(toolName, pattern string) bool {
	if toolName == pattern {
		return true
	}

	matched, err := doublestar.Match(pattern, toolName)
	if err != nil {
		// Invalid pattern - treat as exact match
		return toolName == pattern
	}

	return matched
}
