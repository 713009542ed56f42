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
	"errors"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp/mcptest"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/schema"
)

func pagedSession() *mcptest.MockSession {
	return mcptest.NewMockSession(
		mcp.ToolPage{
			Tools: []mcp.ToolDescriptor{
				describeTool,
				{Name: "listRecords", Description: "List records"},
			},
			NextCursor: "page-2",
		},
		mcp.ToolPage{
			Tools: []mcp.ToolDescriptor{{Name: "describeAction", Description: "Describe an action"}},
		},
	)
}

func TestSearchTools(t *testing.T) {
	session := pagedSession()
	n, _ := newTestNode(session)
	host := loadOptionsHost{newFakeHost(0)}

	t.Run("filters one page", func(t *testing.T) {
		res, err := n.SearchTools(context.Background(), host, "DESCRIBE", "")
		require.NoError(t, err)
		assert.Equal(t, []SearchResult{
			{Name: "describeCollection", Value: "describeCollection", Description: "Describe a collection"},
		}, res.Results)
		assert.Equal(t, "page-2", res.PaginationToken)
	})

	t.Run("follows the pagination token", func(t *testing.T) {
		res, err := n.SearchTools(context.Background(), host, "", "page-2")
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
		assert.Equal(t, "describeAction", res.Results[0].Value)
		assert.Empty(t, res.PaginationToken)
	})

	assert.Equal(t, 2, session.CloseCount())
}

func TestSearchTools_NotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		record credentials.Record
	}{
		{"no token", credentials.Record{"serverUrl": "https://forest.test"}},
		{"no server url", credentials.Record{"token": "abc"}},
		{"no record", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, connector := newTestNode(pagedSession())
			host := newFakeHost(0)
			delete(host.records, credentials.BearerCredentialType)
			if tt.record != nil {
				host.records[credentials.BearerCredentialType] = tt.record
			}

			res, err := n.SearchTools(context.Background(), loadOptionsHost{host}, "", "")
			require.NoError(t, err)
			assert.Empty(t, res.Results)
			assert.NotNil(t, res.Results)
			assert.Zero(t, connector.Connects())

			fields, err := n.ToolFields(context.Background(), loadOptionsHost{host})
			require.NoError(t, err)
			assert.Empty(t, fields)
		})
	}
}

func TestSearchTools_ConnectionError(t *testing.T) {
	n := New(&mcptest.MockConnector{Err: &mcp.ConnectionError{Kind: mcp.KindAuth}})

	_, err := n.SearchTools(context.Background(), loadOptionsHost{newFakeHost(0)}, "", "")
	require.Error(t, err)
	assert.Equal(t, mcp.UserMessage(mcp.KindAuth), err.Error())
}

func TestSearchTools_ListError(t *testing.T) {
	session := pagedSession()
	session.SetListError(errors.New("boom"))
	n, _ := newTestNode(session)

	_, err := n.SearchTools(context.Background(), loadOptionsHost{newFakeHost(0)}, "", "")
	require.Error(t, err)
	assert.Equal(t, 1, session.CloseCount())
}

func TestToolFields(t *testing.T) {
	session := pagedSession()
	n, _ := newTestNode(session)
	host := newFakeHost(0)

	fields, err := n.ToolFields(context.Background(), loadOptionsHost{host})
	require.NoError(t, err)
	assert.Equal(t, []schema.FieldDescriptor{
		{ID: "collectionName", DisplayName: "collectionName - Collection to describe", Type: schema.TypeString, Required: true},
		{ID: "limit", DisplayName: "limit", Type: schema.TypeNumber},
	}, fields)

	t.Run("tool on a later page", func(t *testing.T) {
		host.params[ParamTool] = map[string]any{"__rl": true, "value": "describeAction"}
		fields, err := n.ToolFields(context.Background(), loadOptionsHost{host})
		require.NoError(t, err)
		assert.Empty(t, fields)
		assert.Equal(t, []string{"", "page-2", "", "page-2"}, session.ListCursors())
	})

	t.Run("unknown tool", func(t *testing.T) {
		host.params[ParamTool] = "dropCollection"
		fields, err := n.ToolFields(context.Background(), loadOptionsHost{host})
		require.NoError(t, err)
		assert.Empty(t, fields)
	})

	t.Run("no tool selected", func(t *testing.T) {
		before := session.CloseCount()
		host.params[ParamTool] = ""
		fields, err := n.ToolFields(context.Background(), loadOptionsHost{host})
		require.NoError(t, err)
		assert.Empty(t, fields)
		assert.Equal(t, before, session.CloseCount())
	})
}

// TestExecute_StreamableHTTP drives the node against an in-process MCP
// server through the real connector.
func TestExecute_StreamableHTTP(t *testing.T) {
	const token = "forest-test-token"
	png := []byte{0x89, 'P', 'N', 'G'}

	ts := mcptest.NewHTTPServer(t, token, server.ServerTool{
		Tool: mcpgo.NewToolWithRawSchema("describeCollection", "Describe a collection", json.RawMessage(describeSchema)),
		Handler: func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			out, _ := json.Marshal(map[string]any{"collection": req.GetArguments()["collectionName"]})
			return &mcpgo.CallToolResult{Content: []mcpgo.Content{
				mcpgo.NewTextContent(string(out)),
				mcpgo.NewImageContent(base64.StdEncoding.EncodeToString(png), "image/png"),
			}}, nil
		},
	})

	cfg := mcp.DefaultConnectorConfig()
	cfg.ConnectTimeout = 5 * time.Second
	n := New(mcp.NewConnector(cfg, nil, nil))

	host := newFakeHost(1)
	host.records[credentials.BearerCredentialType] = credentials.Record{"serverUrl": ts.URL, "token": token}
	host.params[ParamParameters] = map[string]any{"collectionName": "users"}

	out, err := n.Execute(context.Background(), host)
	require.NoError(t, err)
	require.Len(t, out, 1)

	content, ok := out[0].JSON["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	assert.Equal(t, map[string]any{"collection": "users"}, content[0].(map[string]any)["text"])
	assert.Equal(t, png, out[0].Binary["data_0"].Data)

	t.Run("rejected token", func(t *testing.T) {
		host.records[credentials.BearerCredentialType] = credentials.Record{"serverUrl": ts.URL, "token": "wrong"}
		_, err := n.Execute(context.Background(), host)
		require.Error(t, err)
		assert.Equal(t, mcp.UserMessage(mcp.KindAuth), err.Error())
	})
}
