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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
)

// buildOutput turns a tool result into the output item for input item
// itemIndex. Text blocks holding valid JSON carry the parsed value. Image
// and audio blocks become attachments data_0, data_1, ... in encounter order
// when convertToBinary is set.
func buildOutput(ctx context.Context, host ExecuteHost, resp *mcp.ToolCallResponse, convertToBinary bool, itemIndex int) (Item, error) {
	item := Item{JSON: map[string]any{}, PairedItem: itemIndex}

	content := make([]any, 0, len(resp.Content))
	var binary map[string]BinaryData

	for _, block := range resp.Content {
		switch {
		case block.Type == mcp.ContentTypeText:
			out := rawCopy(block)
			var parsed any
			if err := json.Unmarshal([]byte(block.Text), &parsed); err == nil {
				out["text"] = parsed
			}
			content = append(content, out)

		case convertToBinary && isMedia(block.Type):
			data, err := decodeBase64(block.Data)
			if err != nil {
				return Item{}, fmt.Errorf("decode %s content: %w", block.Type, err)
			}
			key := fmt.Sprintf("data_%d", len(binary))
			bd, err := host.PrepareBinaryData(ctx, data, fileName(key, block.MimeType), block.MimeType)
			if err != nil {
				return Item{}, fmt.Errorf("prepare binary data: %w", err)
			}
			if binary == nil {
				binary = make(map[string]BinaryData)
			}
			binary[key] = bd

		default:
			content = append(content, rawCopy(block))
		}
	}

	if len(content) > 0 {
		item.JSON["content"] = content
	}
	item.Binary = binary
	return item, nil
}

func isMedia(kind string) bool {
	return kind == mcp.ContentTypeImage || kind == mcp.ContentTypeAudio
}

// rawCopy returns a shallow copy of the block as the server sent it.
func rawCopy(block mcp.ContentItem) map[string]any {
	if block.Raw == nil {
		out := map[string]any{"type": block.Type}
		if block.Text != "" {
			out["text"] = block.Text
		}
		if block.Data != "" {
			out["data"] = block.Data
		}
		if block.MimeType != "" {
			out["mimeType"] = block.MimeType
		}
		return out
	}
	out := make(map[string]any, len(block.Raw))
	for k, v := range block.Raw {
		out[k] = v
	}
	return out
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

// fileName derives an attachment name from the key and the MIME subtype,
// e.g. data_0.png for image/png. An unparsable type yields the bare key.
func fileName(key, mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return key
	}
	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok {
		return key
	}
	sub, _, _ = strings.Cut(sub, "+")
	if sub == "" {
		return key
	}
	return key + "." + sub
}
