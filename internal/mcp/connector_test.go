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

package mcp_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/schema"
)

const testToken = "forest-test-token"

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// newForestServer starts an in-process streamable-HTTP MCP server at /mcp
// that requires testToken.
func newForestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s := server.NewMCPServer("forest-test", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(mcpgo.NewToolWithRawSchema("describeCollection", "Describe a collection", json.RawMessage(`{
		"type": "object",
		"properties": {
			"zeta": {"type": "string", "description": "Last letter"},
			"alpha": {"type": "number"}
		},
		"required": ["zeta"]
	}`)), func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args := req.GetArguments()
		out, _ := json.Marshal(map[string]any{"collection": args["zeta"]})
		return mcpgo.NewToolResultText(string(out)), nil
	})

	s.AddTool(mcpgo.NewTool("renderChart", mcpgo.WithDescription("Render a chart")),
		func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultImage("42", base64.StdEncoding.EncodeToString(pngBytes), "image/png"), nil
		})

	s.AddTool(mcpgo.NewTool("failing", mcpgo.WithDescription("Always fails")),
		func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultError("collection does not exist"), nil
		})

	handler := server.NewStreamableHTTPServer(s)

	mux := http.NewServeMux()
	mux.Handle("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	}))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newConnector() *mcp.Connector {
	cfg := mcp.DefaultConnectorConfig()
	cfg.ConnectTimeout = 5 * time.Second
	return mcp.NewConnector(cfg, nil, nil)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestConnector_Session(t *testing.T) {
	ts := newForestServer(t)
	ctx := context.Background()

	session, err := newConnector().Connect(ctx, ts.URL+"/mcp", bearer(testToken))
	require.NoError(t, err)
	defer session.Close()

	t.Run("lists tools with schemas in document order", func(t *testing.T) {
		tools, err := mcp.ListAllTools(ctx, session, mcp.ListOptions{})
		require.NoError(t, err)
		require.Len(t, tools, 3)

		var describe *mcp.ToolDescriptor
		for i := range tools {
			if tools[i].Name == "describeCollection" {
				describe = &tools[i]
			}
		}
		require.NotNil(t, describe)
		assert.Equal(t, "Describe a collection", describe.Description)

		fields := schema.MapFields(describe.InputSchema, schema.RequiredFields(describe.InputSchema))
		require.Len(t, fields, 2)
		assert.Equal(t, "zeta", fields[0].ID)
		assert.Equal(t, "zeta - Last letter", fields[0].DisplayName)
		assert.True(t, fields[0].Required)
		assert.Equal(t, "alpha", fields[1].ID)
		assert.Equal(t, schema.TypeNumber, fields[1].Type)
	})

	t.Run("calls a text tool", func(t *testing.T) {
		resp, err := session.CallTool(ctx, mcp.ToolCallRequest{
			Name:      "describeCollection",
			Arguments: map[string]any{"zeta": "users"},
		})
		require.NoError(t, err)
		assert.False(t, resp.IsError)
		require.Len(t, resp.Content, 1)
		assert.Equal(t, mcp.ContentTypeText, resp.Content[0].Type)
		assert.JSONEq(t, `{"collection":"users"}`, resp.Content[0].Text)
		assert.Equal(t, mcp.ContentTypeText, resp.Content[0].Raw["type"])
	})

	t.Run("calls an image tool", func(t *testing.T) {
		resp, err := session.CallTool(ctx, mcp.ToolCallRequest{Name: "renderChart"})
		require.NoError(t, err)
		require.Len(t, resp.Content, 2)
		assert.Equal(t, "42", resp.Content[0].Text)
		assert.Equal(t, mcp.ContentTypeImage, resp.Content[1].Type)
		assert.Equal(t, "image/png", resp.Content[1].MimeType)

		decoded, err := base64.StdEncoding.DecodeString(resp.Content[1].Data)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, decoded)
	})

	t.Run("reports tool errors", func(t *testing.T) {
		resp, err := session.CallTool(ctx, mcp.ToolCallRequest{Name: "failing"})
		require.NoError(t, err)
		assert.True(t, resp.IsError)
		assert.Equal(t, "collection does not exist", resp.ErrorText())
	})

	t.Run("search reads one page", func(t *testing.T) {
		result, err := mcp.SearchTools(ctx, session, "CHART", "")
		require.NoError(t, err)
		require.Len(t, result.Tools, 1)
		assert.Equal(t, "renderChart", result.Tools[0].Name)
		assert.Empty(t, result.NextCursor)
	})
}

func TestConnector_Failures(t *testing.T) {
	ts := newForestServer(t)

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		endpoint string
		token    string
		want     mcp.ErrorKind
	}{
		{"bad token", ts.URL + "/mcp", "wrong", mcp.KindAuth},
		{"wrong path", ts.URL + "/api", testToken, mcp.KindNotFound},
		{"unreachable", closedURL + "/mcp", testToken, mcp.KindConnection},
		{"unparsable", "http://[::1/mcp", testToken, mcp.KindInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := newConnector().Connect(context.Background(), tt.endpoint, bearer(tt.token))
			require.Error(t, err)
			assert.Nil(t, session)

			var ce *mcp.ConnectionError
			require.True(t, errors.As(err, &ce), "expected *ConnectionError, got %T", err)
			assert.Equal(t, tt.want, ce.Kind)
			assert.Equal(t, tt.want, mcp.ClassifyError(err))
			assert.Equal(t, mcp.UserMessage(tt.want), ce.UserMessage())
		})
	}
}

func TestConnector_SendsClientHeaders(t *testing.T) {
	var userAgent, correlation string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		correlation = r.Header.Get("X-Correlation-ID")
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	cfg := mcp.DefaultConnectorConfig()
	cfg.HTTP.UserAgent = "forest-mcp-test/9.9"
	_, err := mcp.NewConnector(cfg, nil, nil).Connect(context.Background(), ts.URL+"/mcp", nil)

	require.Error(t, err)
	assert.Equal(t, mcp.KindAuth, mcp.ClassifyError(err))
	assert.Equal(t, "forest-mcp-test/9.9", userAgent)
	assert.Empty(t, correlation)
}
