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

package mcp

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrorKind categorizes a failed connection attempt.
type ErrorKind string

const (
	// KindInvalidURL means the endpoint could not be parsed into a usable URL.
	KindInvalidURL ErrorKind = "invalid_url"
	// KindAuth means the server rejected the credentials (401/403).
	KindAuth ErrorKind = "auth"
	// KindNotFound means no MCP endpoint answered at the URL (404).
	KindNotFound ErrorKind = "not_found"
	// KindConnection covers every other failure.
	KindConnection ErrorKind = "connection"
)

// String returns the kind's identifier.
func (k ErrorKind) String() string { return string(k) }

// ConnectionError is returned by Connector.Connect when no session could be
// opened. Kind is inferred from transport signals and drives the message
// shown to the user.
type ConnectionError struct {
	// Kind is the failure category.
	Kind ErrorKind
	// Endpoint is the URL that was dialed, if normalization got that far.
	Endpoint string
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("mcp connection failed (%s)", e.Kind)
	}
	return fmt.Sprintf("mcp connection failed (%s): %v", e.Kind, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *ConnectionError) IsUserVisible() bool {
	return true
}

// UserMessage implements pkg/errors.UserVisibleError.
func (e *ConnectionError) UserMessage() string {
	return UserMessage(e.Kind)
}

// Suggestion implements pkg/errors.UserVisibleError.
func (e *ConnectionError) Suggestion() string {
	switch e.Kind {
	case KindInvalidURL:
		return "Set serverUrl to the address of your Forest server, for example https://forest.example.com"
	case KindAuth:
		return "Generate a new token, or reconnect the OAuth2 credential"
	case KindNotFound:
		return "The /mcp path is appended automatically; set serverUrl to the server root"
	default:
		return "Check that the server is running and reachable from this machine"
	}
}

// ErrorType implements pkg/errors.ErrorClassifier.
func (e *ConnectionError) ErrorType() string {
	return "connection"
}

// IsRetryable implements pkg/errors.ErrorClassifier. Only generic
// connection failures may succeed on a later attempt.
func (e *ConnectionError) IsRetryable() bool {
	return e.Kind == KindConnection
}

// UserMessage returns the message shown to the workflow user for kind.
func UserMessage(kind ErrorKind) string {
	switch kind {
	case KindInvalidURL:
		return "Invalid server URL. Please check the Server URL in your credentials."
	case KindAuth:
		return "Authentication failed. Please check your credentials or re-authenticate."
	case KindNotFound:
		return "MCP endpoint not found. Please verify the Server URL points to a Forest MCP server."
	default:
		return "Could not connect to the Forest MCP server. Please check the Server URL and that the server is reachable."
	}
}

// statusCoder is implemented by errors that carry an HTTP status, such as
// httpclient.StatusError.
type statusCoder interface {
	StatusCode() int
}

var statusPattern = regexp.MustCompile(`\b(401|403|404)\b`)

// ClassifyError infers the kind of a failed connection attempt.
//
// A structured HTTP status anywhere in the chain wins. Otherwise the message
// is searched for a standalone 401, 403 or 404, then for the words
// "unauthorized", "forbidden" and "not found". Anything else is a generic
// connection failure.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindConnection
	}

	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return kindForStatus(sc.StatusCode())
	}

	msg := err.Error()
	if m := statusPattern.FindString(msg); m != "" {
		switch m {
		case "401", "403":
			return KindAuth
		case "404":
			return KindNotFound
		}
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "forbidden"):
		return KindAuth
	case strings.Contains(lower, "not found"):
		return KindNotFound
	}
	return KindConnection
}

func kindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindConnection
	}
}
