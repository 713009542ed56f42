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
	"encoding/json"
	"io"
	"os"
)

// JSONResponse is the envelope shared by every --json response.
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError is one error entry of a failed --json response.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	ItemIndex  *int   `json:"item_index,omitempty"`
}

// EmitJSON writes response to stdout as indented JSON.
func EmitJSON(response any) error {
	return WriteJSON(os.Stdout, response)
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// EmitJSONError writes a failed response envelope to stdout.
func EmitJSONError(command string, errors []JSONError) error {
	return WriteJSON(os.Stdout, newErrorResponse(command, errors))
}

type errorResponse struct {
	JSONResponse
	Errors []JSONError `json:"errors"`
}

func newErrorResponse(command string, errors []JSONError) errorResponse {
	return errorResponse{
		JSONResponse: JSONResponse{
			Version: "1.0",
			Command: command,
			Success: false,
		},
		Errors: errors,
	}
}
