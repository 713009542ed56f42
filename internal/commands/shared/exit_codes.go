// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/node"
	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

// Exit codes for forest-mcp CLI commands
const (
	ExitSuccess          = 0
	ExitExecutionFailed  = 1 // A tool call or item failed
	ExitInvalidInput     = 2 // Arguments or flags were rejected
	ExitNotConfigured    = 3 // No usable credentials
	ExitConnectionFailed = 4 // The MCP server could not be reached or rejected us
)

// ExitError wraps an error with a specific exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for execution failures (exit code 1)
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an error for rejected input (exit code 2)
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCodeFor picks the exit code for err. An ExitError keeps its own code;
// other errors are classified by type.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var validationErr *foresterrors.ValidationError
	var connErr *mcp.ConnectionError
	switch {
	case errors.Is(err, node.ErrServerURLRequired):
		return ExitNotConfigured
	case errors.As(err, &connErr):
		return ExitConnectionFailed
	case errors.As(err, &validationErr):
		return ExitInvalidInput
	default:
		return ExitExecutionFailed
	}
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	if err == nil {
		return
	}
	code := ExitCodeFor(err)
	if GetJSON() {
		_ = EmitJSONError("forest-mcp", []JSONError{{
			Code:       ErrorCodeFor(code),
			Message:    foresterrors.UserMessageOf(err),
			Suggestion: suggestionOf(err),
		}})
	} else {
		reportError(os.Stderr, err)
	}
	os.Exit(code)
}

// reportError prints err and, when available, its suggestion.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, RenderError("Error: "+foresterrors.UserMessageOf(err)))
	if suggestion := suggestionOf(err); suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
	}
}

// suggestionOf walks the error chain to the first UserVisibleError.
func suggestionOf(err error) string {
	for err != nil {
		if userErr, ok := err.(foresterrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				return userErr.Suggestion()
			}
			return ""
		}
		err = errors.Unwrap(err)
	}
	return ""
}
