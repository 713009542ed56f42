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
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/tracing"
)

// rawRequestIDBase keeps IDs of requests sent directly on the transport
// clear of the ones allocated by the mcp-go client.
const rawRequestIDBase = 1 << 30

// Client is a Session backed by an mcp-go streamable-HTTP client.
type Client struct {
	// client is the underlying MCP protocol client
	client *client.Client

	endpoint string
	logger   *slog.Logger
	metrics  *tracing.Metrics
	tracer   trace.Tracer
	nextID   atomic.Int64
	closed   atomic.Bool
}

func newClient(mc *client.Client, endpoint string, logger *slog.Logger, metrics *tracing.Metrics) *Client {
	return &Client{
		client:   mc,
		endpoint: endpoint,
		logger:   log.OrDiscard(logger),
		metrics:  metrics,
		tracer:   otel.Tracer("forest-mcp/mcp"),
	}
}

// Endpoint returns the normalized URL the session is connected to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type listToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type listToolsResult struct {
	Tools      []ToolDescriptor `json:"tools"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// ListTools fetches one page of tools/list.
//
// The request is sent on the raw transport so each tool's inputSchema is kept
// as the server's bytes. Decoding into mcp.Tool would turn properties into a
// Go map and lose their order.
func (c *Client) ListTools(ctx context.Context, cursor string) (*ToolPage, error) {
	ctx, span := c.tracer.Start(ctx, "mcp.list_tools",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Bool("mcp.cursor", cursor != "")),
	)
	defer span.End()

	req := transport.JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(rawRequestIDBase + c.nextID.Add(1)),
		Method:  string(mcp.MethodToolsList),
	}
	if cursor != "" {
		req.Params = listToolsParams{Cursor: cursor}
	}

	resp, err := c.client.GetTransport().SendRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	if resp.Error != nil {
		err := fmt.Errorf("failed to list tools: %s (code %d)", resp.Error.Message, resp.Error.Code)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var result listToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode tools/list result: %w", err)
	}
	c.metrics.RecordCatalogPage(ctx)

	span.SetAttributes(attribute.Int("mcp.tools", len(result.Tools)))
	log.Trace(ctx, c.logger, "tools page fetched",
		slog.Int("tools", len(result.Tools)),
		slog.Bool("has_next", result.NextCursor != ""),
	)

	return &ToolPage{Tools: result.Tools, NextCursor: result.NextCursor}, nil
}

// CallTool executes an MCP tool with the given arguments. The caller bounds
// the call with ctx.
func (c *Client) CallTool(ctx context.Context, req ToolCallRequest) (*ToolCallResponse, error) {
	ctx, span := c.tracer.Start(ctx, "mcp.call_tool",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mcp.tool", req.Name)),
	)
	defer span.End()

	start := time.Now()
	result, err := c.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      req.Name,
			Arguments: req.Arguments,
		},
	})
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordToolCall(ctx, req.Name, tracing.OutcomeError, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("tool call failed: %w", err)
	}

	response := &ToolCallResponse{
		IsError: result.IsError,
		Content: make([]ContentItem, len(result.Content)),
	}
	for i, content := range result.Content {
		item, err := convertContent(content)
		if err != nil {
			return nil, err
		}
		response.Content[i] = item
	}

	outcome := tracing.OutcomeSuccess
	if result.IsError {
		outcome = tracing.OutcomeToolError
		span.SetStatus(codes.Error, "tool reported an error")
	}
	c.metrics.RecordToolCall(ctx, req.Name, outcome, duration)
	c.logger.Debug("tool call completed",
		slog.String(log.ToolKey, req.Name),
		slog.Int64(log.DurationKey, duration.Milliseconds()),
		slog.Int("blocks", len(response.Content)),
		slog.Bool("is_error", result.IsError),
	)

	return response, nil
}

func convertContent(content mcp.Content) (ContentItem, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return ContentItem{}, fmt.Errorf("failed to marshal content: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ContentItem{}, fmt.Errorf("failed to unmarshal content: %w", err)
	}

	item := ContentItem{Raw: fields}
	if textContent, ok := mcp.AsTextContent(content); ok {
		item.Type = textContent.Type
		item.Text = textContent.Text
		return item, nil
	}
	if imageContent, ok := mcp.AsImageContent(content); ok {
		item.Type = imageContent.Type
		item.Data = imageContent.Data
		item.MimeType = imageContent.MIMEType
		return item, nil
	}

	// Audio and embedded resources are read from their JSON form.
	if v, ok := fields["type"].(string); ok {
		item.Type = v
	}
	if v, ok := fields["text"].(string); ok {
		item.Text = v
	}
	if v, ok := fields["data"].(string); ok {
		item.Data = v
	}
	if v, ok := fields["mimeType"].(string); ok {
		item.MimeType = v
	}
	return item, nil
}

// Close closes the session. It is safe to call more than once.
func (c *Client) Close() error {
	if c.client == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.metrics.RecordSessionClosed()
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close MCP client: %w", err)
	}
	return nil
}
