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

package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp/mcptest"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/secrets"
)

func TestPingEndpoint(t *testing.T) {
	ctx := context.Background()
	ready := credentials.ResolvedEndpoint{EndpointURL: "https://user:pw@forest.example/mcp?key=1"}

	t.Run("not configured", func(t *testing.T) {
		result := pingEndpoint(ctx, &mcptest.MockConnector{}, credentials.BearerAuth, credentials.ResolvedEndpoint{})
		assert.False(t, result.Configured)
		assert.Equal(t, StepConfigured, result.ErrorStep)
		assert.Contains(t, result.Message, "--auth bearerAuth credentials set")
		assert.Equal(t, shared.ExitNotConfigured, shared.ExitCodeFor(pingExitError(result)))
	})

	t.Run("connection refused", func(t *testing.T) {
		connector := &mcptest.MockConnector{Err: &mcp.ConnectionError{Kind: mcp.KindAuth, Cause: errors.New("401")}}
		result := pingEndpoint(ctx, connector, credentials.BearerAuth, ready)
		assert.True(t, result.Configured)
		assert.False(t, result.Connected)
		assert.Equal(t, StepConnected, result.ErrorStep)
		assert.Equal(t, mcp.UserMessage(mcp.KindAuth), result.Message)
		assert.Equal(t, shared.ExitConnectionFailed, shared.ExitCodeFor(pingExitError(result)))
	})

	t.Run("list fails", func(t *testing.T) {
		session := mcptest.NewMockSessionWithTools()
		session.SetListError(errors.New("boom"))
		result := pingEndpoint(ctx, &mcptest.MockConnector{Session: session}, credentials.BearerAuth, ready)
		assert.True(t, result.Connected)
		assert.False(t, result.Healthy)
		assert.Equal(t, StepListed, result.ErrorStep)
		assert.Equal(t, 1, session.CloseCount())
		assert.Equal(t, shared.ExitExecutionFailed, shared.ExitCodeFor(pingExitError(result)))
	})

	t.Run("healthy", func(t *testing.T) {
		session := mcptest.NewMockSessionWithTools(mcp.ToolDescriptor{Name: "a"}, mcp.ToolDescriptor{Name: "b"})
		result := pingEndpoint(ctx, &mcptest.MockConnector{Session: session}, credentials.OAuth2, ready)
		assert.True(t, result.Healthy)
		assert.Equal(t, 2, result.ToolCount)
		assert.Equal(t, "https://forest.example/mcp", result.Endpoint)
		assert.NoError(t, pingExitError(result))
	})
}

func TestOutputPingText_SkippedSteps(t *testing.T) {
	var out bytes.Buffer
	outputPingText(&out, PingResult{
		AuthMode:  string(credentials.BearerAuth),
		ErrorStep: StepConfigured,
		Error:     "no server URL",
	})
	text := out.String()
	assert.Contains(t, text, "Connected:  "+shared.RenderWarn("skipped"))
	assert.Contains(t, text, "Listed:     "+shared.RenderWarn("skipped"))
	assert.Contains(t, text, "Status: Failed")

	out.Reset()
	outputPingText(&out, PingResult{Configured: true, ErrorStep: StepConnected, Error: "refused"})
	text = out.String()
	assert.NotContains(t, text, "Connected:  "+shared.RenderWarn("skipped"))
	assert.Contains(t, text, "Listed:     "+shared.RenderWarn("skipped"))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "", redactURL(""))
	assert.Equal(t, "https://forest.example/mcp", redactURL("https://u:p@forest.example/mcp?token=x"))
	assert.Equal(t, "[invalid url]", redactURL("http://[::1"))
}

func TestPingCommand(t *testing.T) {
	ts := mcptest.NewHTTPServer(t, "ping-token", server.ServerTool{
		Tool: mcpgo.NewTool("listUsers"),
		Handler: func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultText("[]"), nil
		},
	})

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("FOREST_MCP_KEYCHAIN", "false")
	t.Setenv("FOREST_MCP_SECRETS_FILE", filepath.Join(home, "secrets.enc"))
	t.Setenv("FOREST_MCP_MASTER_KEY", "test-master-key")
	t.Setenv("FOREST_MCP_LOG_LEVEL", "error")
	rec, err := json.Marshal(map[string]string{"serverUrl": ts.URL, "token": "ping-token"})
	require.NoError(t, err)
	t.Setenv(secrets.EnvKey(credentials.SecretKey(credentials.BearerCredentialType)), string(rec))

	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	cmd := NewPingCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var result PingResult
	require.NoError(t, json.NewDecoder(strings.NewReader(out.String())).Decode(&result))
	assert.True(t, result.Healthy)
	assert.Equal(t, 1, result.ToolCount)
	assert.Equal(t, string(credentials.BearerAuth), result.AuthMode)
}
