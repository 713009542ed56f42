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

package mcptest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/server"
)

// NewHTTPServer starts an in-process streamable-HTTP MCP server serving
// tools at /mcp. Requests without "Authorization: Bearer <token>" get a 401.
// The server is closed when the test ends.
func NewHTTPServer(t testing.TB, token string, tools ...server.ServerTool) *httptest.Server {
	t.Helper()

	s := server.NewMCPServer("forest-test", "1.0.0", server.WithToolCapabilities(false))
	s.AddTools(tools...)
	handler := server.NewStreamableHTTPServer(s)

	mux := http.NewServeMux()
	mux.Handle("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	}))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}
