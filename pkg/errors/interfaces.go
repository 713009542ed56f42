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

package errors

// UserVisibleError defines errors that are displayed to the workflow user
// with a friendly message and an optional suggestion.
//
// Connection failures and per-item execution failures implement this so the
// host boundary can pick the message without inspecting transport details.
type UserVisibleError interface {
	error

	// IsUserVisible returns true if this error should be shown to users.
	IsUserVisible() bool

	// UserMessage returns a user-friendly error message.
	UserMessage() string

	// Suggestion returns actionable guidance, or "" if there is none.
	Suggestion() string
}

// ErrorClassifier lets callers branch on an error category without
// type-switching on concrete types.
type ErrorClassifier interface {
	error

	// ErrorType returns the category, e.g. "validation", "connection", "tool".
	ErrorType() string

	// IsRetryable reports whether repeating the operation may succeed.
	IsRetryable() bool
}
