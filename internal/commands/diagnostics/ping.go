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
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/node"
)

const pingTimeout = 30 * time.Second

// Steps reported in PingResult.ErrorStep.
const (
	StepConfigured = "configured"
	StepConnected  = "connected"
	StepListed     = "listed"
)

// PingResult contains the ping health check result
type PingResult struct {
	AuthMode   string `json:"auth_mode"`
	Endpoint   string `json:"endpoint,omitempty"`
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Listed     bool   `json:"listed"`
	Healthy    bool   `json:"healthy"`
	ToolCount  int    `json:"tool_count"`
	LatencyMS  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
	ErrorStep  string `json:"error_step,omitempty"`
	Message    string `json:"message,omitempty"`
}

// NewPingCommand creates the ping command
func NewPingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "ping",
		Annotations: map[string]string{
			"group": "diagnostics",
		},
		Short: "Quick health check for the MCP server",
		Long: `Test connectivity and authentication with the configured MCP server.

This performs a lightweight three-step check:
  1. Configured - A server URL is stored for the auth mode
  2. Connected  - The server accepted the session and credentials
  3. Listed     - The first page of tools could be read

Exit codes:
  0 - Server is healthy
  1 - Listing tools failed
  3 - Not configured
  4 - Connection failed`,
		Args: cobra.NoArgs,
		RunE: runPing,
	}

	return cmd
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}
	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	endpoint := credentials.Resolve(ctx, mode, rt.Credentials, rt.Logger)
	result := pingEndpoint(ctx, rt.Connector, mode, endpoint)

	w := cmd.OutOrStdout()
	if shared.GetJSON() {
		if err := shared.WriteJSON(w, result); err != nil {
			return err
		}
	} else if !shared.GetQuiet() {
		outputPingText(w, result)
	}

	return pingExitError(result)
}

// pingEndpoint runs the checks in order and stops at the first failure.
func pingEndpoint(ctx context.Context, connector node.Connector, mode credentials.AuthMode, endpoint credentials.ResolvedEndpoint) PingResult {
	result := PingResult{
		AuthMode: string(mode),
		Endpoint: redactURL(endpoint.EndpointURL),
	}

	if !endpoint.Ready() {
		result.ErrorStep = StepConfigured
		result.Error = node.ErrServerURLRequired.Error()
		result.Message = fmt.Sprintf("Run 'forest-mcp --auth %s credentials set' to store a server URL.", mode)
		return result
	}
	result.Configured = true

	start := time.Now()
	defer func() { result.LatencyMS = time.Since(start).Milliseconds() }()

	session, err := connector.Connect(ctx, endpoint.EndpointURL, endpoint.Headers)
	if err != nil {
		result.ErrorStep = StepConnected
		result.Error = err.Error()
		result.Message = mcp.UserMessage(mcp.ClassifyError(err))
		return result
	}
	defer session.Close()
	result.Connected = true

	page, err := session.ListTools(ctx, "")
	if err != nil {
		result.ErrorStep = StepListed
		result.Error = err.Error()
		return result
	}
	result.Listed = true
	result.ToolCount = len(page.Tools)
	result.Healthy = true

	return result
}

// pingExitError maps a failed step to the matching exit code.
func pingExitError(result PingResult) error {
	switch result.ErrorStep {
	case "":
		return nil
	case StepConfigured:
		return &shared.ExitError{Code: shared.ExitNotConfigured, Message: result.Error, Cause: node.ErrServerURLRequired}
	case StepConnected:
		return &shared.ExitError{Code: shared.ExitConnectionFailed, Message: result.Message}
	default:
		return shared.NewExecutionError("failed to list tools: "+result.Error, nil)
	}
}

// outputPingText outputs ping result in human-readable format
func outputPingText(w io.Writer, result PingResult) {
	fmt.Fprintf(w, "Testing server: %s (%s)\n", orNone(result.Endpoint), result.AuthMode)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Configured: %s\n", checkMark(true, result.Configured))
	fmt.Fprintf(w, "  Connected:  %s\n", checkMark(result.Configured, result.Connected))
	fmt.Fprintf(w, "  Listed:     %s\n", checkMark(result.Connected, result.Listed))
	if result.Listed {
		fmt.Fprintf(w, "  Tools:      %d on the first page\n", result.ToolCount)
	}
	if result.Configured {
		fmt.Fprintf(w, "  Latency:    %dms\n", result.LatencyMS)
	}

	fmt.Fprintln(w)
	if result.Healthy {
		fmt.Fprintln(w, "Status: Healthy")
		return
	}
	fmt.Fprintln(w, "Status: Failed")
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}
	if result.Message != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, result.Message)
	}
}

// redactURL drops user info and the query string, which may carry secrets.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid url]"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// checkMark renders a step outcome. A step that was never reached because an
// earlier one failed is shown as skipped.
func checkMark(reached, ok bool) string {
	if !reached {
		return shared.RenderWarn("skipped")
	}
	if ok {
		return shared.RenderStatus(true, "ok")
	}
	return shared.RenderStatus(false, "fail")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
