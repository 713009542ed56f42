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

// Package mcptest provides in-memory MCP sessions for tests.
package mcptest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
)

// MockSession implements mcp.Session over a fixed list of catalog pages.
//
// Page 0 is served for the empty cursor and every later page is served for
// the NextCursor of the page before it.
type MockSession struct {
	mu        sync.RWMutex
	pages     map[string]mcp.ToolPage
	cursors   []string
	listErr   error
	callFunc  func(ctx context.Context, req mcp.ToolCallRequest) (*mcp.ToolCallResponse, error)
	callDelay time.Duration
	calls     []mcp.ToolCallRequest
	closes    int
}

// NewMockSession creates a session serving pages in order.
func NewMockSession(pages ...mcp.ToolPage) *MockSession {
	s := &MockSession{pages: make(map[string]mcp.ToolPage, len(pages))}
	cursor := ""
	for _, p := range pages {
		s.pages[cursor] = p
		cursor = p.NextCursor
	}
	return s
}

// NewMockSessionWithTools creates a single-page session.
func NewMockSessionWithTools(tools ...mcp.ToolDescriptor) *MockSession {
	return NewMockSession(mcp.ToolPage{Tools: tools})
}

// ListTools returns the page registered for cursor.
func (s *MockSession) ListTools(ctx context.Context, cursor string) (*mcp.ToolPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors = append(s.cursors, cursor)
	if s.listErr != nil {
		return nil, s.listErr
	}
	page, ok := s.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("unknown cursor %q", cursor)
	}

	// Copy to prevent mutation
	tools := make([]mcp.ToolDescriptor, len(page.Tools))
	copy(tools, page.Tools)
	return &mcp.ToolPage{Tools: tools, NextCursor: page.NextCursor}, nil
}

// CallTool executes a tool call using the configured handler.
func (s *MockSession) CallTool(ctx context.Context, req mcp.ToolCallRequest) (*mcp.ToolCallResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	delay := s.callDelay
	callFunc := s.callFunc
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if callFunc != nil {
		return callFunc(ctx, req)
	}

	// Default behavior: echo back the tool name
	return &mcp.ToolCallResponse{
		Content: []mcp.ContentItem{TextContent(fmt.Sprintf("Mock response for %s", req.Name))},
	}, nil
}

// Close records that the session was closed.
func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// SetListError makes every ListTools call fail with err.
func (s *MockSession) SetListError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// SetCallHandler sets a custom call handler.
func (s *MockSession) SetCallHandler(f func(ctx context.Context, req mcp.ToolCallRequest) (*mcp.ToolCallResponse, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callFunc = f
}

// SetCallDelay delays every tool call by d, or until ctx is done.
func (s *MockSession) SetCallDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callDelay = d
}

// ListCursors returns the cursor of every ListTools call, in order.
func (s *MockSession) ListCursors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.cursors...)
}

// Calls returns every tool call received, in order.
func (s *MockSession) Calls() []mcp.ToolCallRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]mcp.ToolCallRequest(nil), s.calls...)
}

// CloseCount returns how many times Close was called.
func (s *MockSession) CloseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closes
}

// MockConnector hands out a fixed session, or fails with Err.
type MockConnector struct {
	mu       sync.Mutex
	Session  mcp.Session
	Err      error
	connects int
	endpoint string
	headers  map[string]string
}

// Connect records the request and returns the configured outcome.
func (c *MockConnector) Connect(ctx context.Context, endpoint string, headers map[string]string) (mcp.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connects++
	c.endpoint = endpoint
	c.headers = headers
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Session, nil
}

// Connects returns how many times Connect was called.
func (c *MockConnector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// LastRequest returns the endpoint and headers of the last Connect call.
func (c *MockConnector) LastRequest() (string, map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint, c.headers
}

// TextContent builds a text block.
func TextContent(text string) mcp.ContentItem {
	return mcp.ContentItem{
		Type: mcp.ContentTypeText,
		Text: text,
		Raw:  map[string]any{"type": mcp.ContentTypeText, "text": text},
	}
}

// BinaryContent builds an image or audio block from base64 data.
func BinaryContent(kind, data, mimeType string) mcp.ContentItem {
	return mcp.ContentItem{
		Type:     kind,
		Data:     data,
		MimeType: mimeType,
		Raw:      map[string]any{"type": kind, "data": data, "mimeType": mimeType},
	}
}
