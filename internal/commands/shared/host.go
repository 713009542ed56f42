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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/node"
)

// LocalHost runs the node outside a workflow engine. Parameters apply to
// every item unless overridden per item; attachments are written to
// OutputDir, or kept in memory when it is empty.
type LocalHost struct {
	Store     credentials.Store
	Items     []node.Item
	Params    map[string]any
	ItemParam []map[string]any
	Continue  bool
	OutputDir string
	Log       *slog.Logger
}

var (
	_ node.ExecuteHost     = (*LocalHost)(nil)
	_ node.LoadOptionsHost = LoadOptions{}
)

// Credentials implements credentials.Store.
func (h *LocalHost) Credentials(ctx context.Context, credentialType string) (credentials.Record, error) {
	return h.Store.Credentials(ctx, credentialType)
}

// InputItems implements node.ExecuteHost.
func (h *LocalHost) InputItems() []node.Item { return h.Items }

// NodeParameter implements node.ExecuteHost.
func (h *LocalHost) NodeParameter(name string, itemIndex int) (any, error) {
	if itemIndex >= 0 && itemIndex < len(h.ItemParam) {
		if v, ok := h.ItemParam[itemIndex][name]; ok {
			return v, nil
		}
	}
	return h.Params[name], nil
}

// ContinueOnFail implements node.ExecuteHost.
func (h *LocalHost) ContinueOnFail() bool { return h.Continue }

// PrepareBinaryData implements node.ExecuteHost.
func (h *LocalHost) PrepareBinaryData(ctx context.Context, data []byte, fileName, mimeType string) (node.BinaryData, error) {
	id := uuid.NewString()
	bd := node.BinaryData{
		ID:            id,
		FileName:      fileName,
		FileExtension: strings.TrimPrefix(filepath.Ext(fileName), "."),
		MimeType:      mimeType,
		FileSize:      len(data),
	}

	if h.OutputDir == "" {
		bd.Data = data
		return bd, nil
	}

	if err := os.MkdirAll(h.OutputDir, 0o755); err != nil {
		return node.BinaryData{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(h.OutputDir, id[:8]+"-"+fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return node.BinaryData{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	bd.ID = path
	return bd, nil
}

// Logger implements node.ExecuteHost.
func (h *LocalHost) Logger() *slog.Logger { return h.Log }

// LoadOptions exposes a LocalHost to the discovery methods, reading the
// parameters of item 0.
type LoadOptions struct {
	*LocalHost
}

// NodeParameter implements node.LoadOptionsHost.
func (l LoadOptions) NodeParameter(name string) (any, error) {
	return l.LocalHost.NodeParameter(name, 0)
}
