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
	"fmt"
	"log/slog"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
)

// fakeHost implements ExecuteHost and LoadOptionsHost in memory.
type fakeHost struct {
	records        map[string]credentials.Record
	items          []Item
	params         map[string]any
	perItem        map[int]map[string]any
	continueOnFail bool
	prepared       []BinaryData
}

func newFakeHost(items int) *fakeHost {
	h := &fakeHost{
		records: map[string]credentials.Record{
			credentials.BearerCredentialType: {"serverUrl": "https://forest.test", "token": "secret-token"},
		},
		params: map[string]any{
			ParamAuthentication: "bearerAuth",
			ParamTool:           "describeCollection",
			ParamInputMode:      "manual",
		},
		perItem: map[int]map[string]any{},
	}
	for i := 0; i < items; i++ {
		h.items = append(h.items, Item{JSON: map[string]any{"i": i}})
	}
	return h
}

func (h *fakeHost) setItemParam(i int, name string, v any) {
	if h.perItem[i] == nil {
		h.perItem[i] = map[string]any{}
	}
	h.perItem[i][name] = v
}

func (h *fakeHost) Credentials(ctx context.Context, credentialType string) (credentials.Record, error) {
	rec, ok := h.records[credentialType]
	if !ok {
		return nil, fmt.Errorf("no credentials of type %s", credentialType)
	}
	return rec, nil
}

func (h *fakeHost) InputItems() []Item { return h.items }

func (h *fakeHost) NodeParameter(name string, itemIndex int) (any, error) {
	if v, ok := h.perItem[itemIndex][name]; ok {
		return v, nil
	}
	return h.params[name], nil
}

func (h *fakeHost) ContinueOnFail() bool { return h.continueOnFail }

func (h *fakeHost) PrepareBinaryData(ctx context.Context, data []byte, fileName, mimeType string) (BinaryData, error) {
	bd := BinaryData{
		ID:       fmt.Sprintf("bin-%d", len(h.prepared)),
		FileName: fileName,
		MimeType: mimeType,
		FileSize: len(data),
		Data:     data,
	}
	h.prepared = append(h.prepared, bd)
	return bd, nil
}

func (h *fakeHost) Logger() *slog.Logger { return nil }

// loadOptionsHost adapts fakeHost to the discovery interface.
type loadOptionsHost struct{ *fakeHost }

func (h loadOptionsHost) NodeParameter(name string) (any, error) {
	return h.fakeHost.NodeParameter(name, 0)
}
