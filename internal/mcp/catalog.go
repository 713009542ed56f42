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
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

// DefaultMaxPages bounds ListAllTools when ListOptions.MaxPages is unset.
const DefaultMaxPages = 100

// ErrPaginationLoop is returned when tools/list keeps paginating: a cursor
// came back twice or the page limit was reached.
var ErrPaginationLoop = errors.New("tools/list pagination did not terminate")

// ListOptions bounds catalog pagination.
type ListOptions struct {
	// MaxPages is the most pages ListAllTools will fetch.
	MaxPages int
}

// ListAllTools follows tools/list cursors until the catalog is exhausted and
// returns every tool in server order. The session is left open.
func ListAllTools(ctx context.Context, session Session, opts ListOptions) ([]ToolDescriptor, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	tools := []ToolDescriptor{}
	seen := make(map[string]struct{})
	cursor := ""

	for page := 1; ; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrPaginationLoop, maxPages)
		}

		result, err := session.ListTools(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		tools = append(tools, result.Tools...)

		if result.NextCursor == "" {
			return tools, nil
		}
		if _, dup := seen[result.NextCursor]; dup {
			return nil, fmt.Errorf("%w: cursor %q repeated", ErrPaginationLoop, result.NextCursor)
		}
		seen[result.NextCursor] = struct{}{}
		cursor = result.NextCursor
	}
}

// FindTool lists the catalog and returns the tool called name, or a
// *NotFoundError.
func FindTool(ctx context.Context, session Session, name string, opts ListOptions) (*ToolDescriptor, error) {
	tools, err := ListAllTools(ctx, session, opts)
	if err != nil {
		return nil, err
	}
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i], nil
		}
	}
	return nil, &foresterrors.NotFoundError{Resource: "tool", ID: name}
}

// SearchResult is one filtered page of the catalog.
type SearchResult struct {
	Tools      []ToolDescriptor
	NextCursor string
}

// SearchTools fetches the single page at cursor and keeps the tools whose
// name contains filter under Unicode case folding. An empty filter keeps
// every tool.
func SearchTools(ctx context.Context, session Session, filter, cursor string) (*SearchResult, error) {
	page, err := session.ListTools(ctx, cursor)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(filter)
	matched := make([]ToolDescriptor, 0, len(page.Tools))
	for _, tool := range page.Tools {
		if needle == "" || strings.Contains(fold.String(tool.Name), needle) {
			matched = append(matched, tool)
		}
	}
	return &SearchResult{Tools: matched, NextCursor: page.NextCursor}, nil
}
