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
	"context"
	"encoding/json"
	"strings"
)

// Content block types returned by tools/call.
const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeAudio    = "audio"
	ContentTypeResource = "resource"
)

// Session is an open connection to a Forest MCP server. It is used for one
// purpose and closed by whoever opened it.
type Session interface {
	// ListTools fetches one page of the tool catalog. An empty cursor
	// requests the first page.
	ListTools(ctx context.Context, cursor string) (*ToolPage, error)

	// CallTool invokes a tool. A result flagged IsError is returned without
	// an error; callers decide how to surface it.
	CallTool(ctx context.Context, req ToolCallRequest) (*ToolCallResponse, error)

	// Close releases the session.
	Close() error
}

// ToolDescriptor describes a remote tool.
type ToolDescriptor struct {
	// Name is the unique identifier for this tool
	Name string `json:"name"`

	// Description explains what the tool does
	Description string `json:"description,omitempty"`

	// InputSchema is the tool's JSON Schema exactly as the server sent it.
	// Property order is preserved.
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolPage is one page of tools/list.
type ToolPage struct {
	Tools      []ToolDescriptor `json:"tools"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// ToolCallRequest represents a request to execute an MCP tool.
type ToolCallRequest struct {
	// Name is the tool to execute
	Name string `json:"name"`

	// Arguments contains the input parameters for the tool
	Arguments map[string]any `json:"arguments"`
}

// ToolCallResponse represents the result of an MCP tool execution.
type ToolCallResponse struct {
	// Content contains the tool's output
	Content []ContentItem `json:"content"`

	// IsError indicates if the tool execution failed
	IsError bool `json:"isError,omitempty"`
}

// ErrorText joins the text blocks of a failed result.
func (r *ToolCallResponse) ErrorText() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type == ContentTypeText && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) == 0 {
		return "tool returned an error without a message"
	}
	return strings.Join(parts, "\n")
}

// ContentItem represents a piece of content in an MCP response.
type ContentItem struct {
	// Type is the content type (text, image, audio, resource, ...)
	Type string `json:"type"`

	// Text is the text content (for type="text")
	Text string `json:"text,omitempty"`

	// Data is the base64-encoded data (for type="image" and type="audio")
	Data string `json:"data,omitempty"`

	// MimeType is the MIME type for binary content
	MimeType string `json:"mimeType,omitempty"`

	// Raw is the block as the server sent it, for pass-through.
	Raw map[string]any `json:"-"`
}
