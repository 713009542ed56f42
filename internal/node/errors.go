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

package node

import (
	"errors"
	"fmt"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

// ErrServerURLRequired is returned by Execute when the credentials yield no
// endpoint.
var ErrServerURLRequired = errors.New("Server URL is required in credentials")

// ItemError is a failure while processing one input item.
type ItemError struct {
	// ItemIndex is the index of the failing input item.
	ItemIndex int

	// Message is the user-facing description.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %s", e.ItemIndex, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ItemError) Unwrap() error { return e.Cause }

// IsUserVisible implements UserVisibleError.
func (e *ItemError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ItemError) UserMessage() string { return e.Message }

// Suggestion implements UserVisibleError.
func (e *ItemError) Suggestion() string {
	return suggestionOf(e.Cause)
}

// OperationError aborts a whole invocation, before or outside item
// processing. Its Error is the user-facing message.
type OperationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *OperationError) Error() string { return e.Message }

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *OperationError) Unwrap() error { return e.Cause }

// IsUserVisible implements UserVisibleError.
func (e *OperationError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *OperationError) UserMessage() string { return e.Message }

// Suggestion implements UserVisibleError.
func (e *OperationError) Suggestion() string {
	return suggestionOf(e.Cause)
}

// connectionFailure maps a Connect failure to the message for its kind.
// Errors that were not classified by the connector are classified here.
func connectionFailure(err error) *OperationError {
	var connErr *mcp.ConnectionError
	if !errors.As(err, &connErr) {
		connErr = &mcp.ConnectionError{Kind: mcp.ClassifyError(err), Cause: err}
	}
	return &OperationError{Message: mcp.UserMessage(connErr.Kind), Cause: connErr}
}

func suggestionOf(err error) string {
	var uv foresterrors.UserVisibleError
	if errors.As(err, &uv) {
		return uv.Suggestion()
	}
	return ""
}
