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
	"context"
	"log/slog"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
)

// Host parameter names.
const (
	ParamAuthentication = "authentication"
	ParamTool           = "tool"
	ParamInputMode      = "inputMode"
	ParamParameters     = "parameters"
	ParamJSONParameters = "jsonParameters"
	ParamOptions        = "options"
)

// Item is one workflow item.
type Item struct {
	JSON       map[string]any        `json:"json"`
	Binary     map[string]BinaryData `json:"binary,omitempty"`
	PairedItem int                   `json:"pairedItem"`
}

// BinaryData is a binary attachment as prepared by the host.
type BinaryData struct {
	ID            string `json:"id,omitempty"`
	FileName      string `json:"fileName,omitempty"`
	FileExtension string `json:"fileExtension,omitempty"`
	MimeType      string `json:"mimeType"`
	FileSize      int    `json:"fileSize"`

	// Data holds the bytes when the host keeps them in memory.
	Data []byte `json:"-"`
}

// ExecuteHost is what Execute needs from the workflow host.
type ExecuteHost interface {
	credentials.Store

	// InputItems returns the batch to process.
	InputItems() []Item

	// NodeParameter returns the value of a node parameter for one item.
	NodeParameter(name string, itemIndex int) (any, error)

	// ContinueOnFail reports whether failed items become error records.
	ContinueOnFail() bool

	// PrepareBinaryData stores data and returns the attachment describing it.
	PrepareBinaryData(ctx context.Context, data []byte, fileName, mimeType string) (BinaryData, error)

	// Logger returns the host logger. May return nil.
	Logger() *slog.Logger
}

// LoadOptionsHost is what the discovery methods need from the host.
type LoadOptionsHost interface {
	credentials.Store

	// NodeParameter returns the current value of a node parameter.
	NodeParameter(name string) (any, error)

	// Logger returns the host logger. May return nil.
	Logger() *slog.Logger
}

// Connector opens MCP sessions. *mcp.Connector satisfies it.
type Connector interface {
	Connect(ctx context.Context, endpoint string, headers map[string]string) (mcp.Session, error)
}
