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

// Error codes for structured JSON output
const (
	ErrorCodeExecutionFailed  = "E101" // A tool call or item failed
	ErrorCodeInvalidInput     = "E201" // Arguments or flags were rejected
	ErrorCodeNotConfigured    = "E301" // No usable credentials
	ErrorCodeConnectionFailed = "E401" // The MCP server could not be reached
)

// ErrorCodeFor maps an exit code to its JSON error code
func ErrorCodeFor(exitCode int) string {
	switch exitCode {
	case ExitInvalidInput:
		return ErrorCodeInvalidInput
	case ExitNotConfigured:
		return ErrorCodeNotConfigured
	case ExitConnectionFailed:
		return ErrorCodeConnectionFailed
	default:
		return ErrorCodeExecutionFailed
	}
}
