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
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/schema"
	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

// SearchResult is one entry of a searchable tool list.
type SearchResult struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// SearchResults is one page of tool search results.
type SearchResults struct {
	Results         []SearchResult `json:"results"`
	PaginationToken string         `json:"paginationToken,omitempty"`
}

// SearchTools lists the tools of one catalog page whose name contains
// filter, minus those the tool policy hides. Unconfigured credentials yield
// an empty result.
func (n *Node) SearchTools(ctx context.Context, host LoadOptionsHost, filter, paginationToken string) (SearchResults, error) {
	empty := SearchResults{Results: []SearchResult{}}

	ctx, span := n.tracer.Start(ctx, "node.search_tools",
		trace.WithAttributes(attribute.String("search.filter", filter)),
	)
	defer span.End()

	session, ok, err := n.discoverySession(ctx, host)
	if err != nil || !ok {
		return empty, err
	}
	defer session.Close()

	found, err := mcp.SearchTools(ctx, session, filter, paginationToken)
	if err != nil {
		return empty, n.fail(span, err)
	}

	results := make([]SearchResult, 0, len(found.Tools))
	for _, tool := range found.Tools {
		if !n.policy.Allows(tool.Name) {
			continue
		}
		results = append(results, SearchResult{
			Name:        tool.Name,
			Value:       tool.Name,
			Description: tool.Description,
		})
	}
	return SearchResults{Results: results, PaginationToken: found.NextCursor}, nil
}

// ToolFields returns the argument fields of the selected tool. No selection,
// a tool hidden by the policy, unconfigured credentials and an unknown tool
// all yield no fields.
func (n *Node) ToolFields(ctx context.Context, host LoadOptionsHost) ([]schema.FieldDescriptor, error) {
	empty := []schema.FieldDescriptor{}

	toolParam, err := host.NodeParameter(ParamTool)
	if err != nil {
		return empty, err
	}
	tool := ToolName(toolParam)
	if tool == "" || !n.policy.Allows(tool) {
		return empty, nil
	}

	ctx, span := n.tracer.Start(ctx, "node.tool_fields",
		trace.WithAttributes(attribute.String("mcp.tool", tool)),
	)
	defer span.End()

	session, ok, err := n.discoverySession(ctx, host)
	if err != nil || !ok {
		return empty, err
	}
	defer session.Close()

	desc, err := mcp.FindTool(ctx, session, tool, n.listOpts)
	if err != nil {
		var nf *foresterrors.NotFoundError
		if errors.As(err, &nf) {
			return empty, nil
		}
		return empty, n.fail(span, err)
	}

	return schema.MapFields(desc.InputSchema, schema.RequiredFields(desc.InputSchema)), nil
}

// discoverySession resolves credentials and connects. ok is false when the
// credentials are not configured.
func (n *Node) discoverySession(ctx context.Context, host LoadOptionsHost) (mcp.Session, bool, error) {
	logger := log.WithComponent(log.OrDiscard(host.Logger()), "node")

	authParam, err := host.NodeParameter(ParamAuthentication)
	if err != nil {
		return nil, false, err
	}
	mode, err := credentials.ParseAuthMode(stringParam(authParam))
	if err != nil {
		return nil, false, err
	}

	endpoint := credentials.Resolve(ctx, mode, host, logger)
	if !endpoint.Ready() {
		logger.Debug("credentials not configured", slog.String(log.AuthModeKey, string(mode)))
		return nil, false, nil
	}

	session, err := n.connector.Connect(ctx, endpoint.EndpointURL, endpoint.Headers)
	if err != nil {
		return nil, false, connectionFailure(err)
	}
	return session, true, nil
}
