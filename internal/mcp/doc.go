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

/*
Package mcp connects to Forest MCP servers and reads their tool catalogs.

# Connecting

A Connector opens one streamable-HTTP session per call. Endpoints without a
scheme are treated as https:

	connector := mcp.NewConnector(mcp.DefaultConnectorConfig(), logger, metrics)
	session, err := connector.Connect(ctx, "forest.example.com/mcp", map[string]string{
	    "Authorization": "Bearer " + token,
	})
	if err != nil {
	    // err is a *ConnectionError; its Kind selects the user message
	    return errors.New(mcp.UserMessage(mcp.ClassifyError(err)))
	}
	defer session.Close()

# Errors

ClassifyError maps a failure to one of four kinds:

  - KindInvalidURL: the endpoint could not be parsed
  - KindAuth: the server answered 401 or 403
  - KindNotFound: the server answered 404
  - KindConnection: anything else

A structured HTTP status is preferred; the error message is only searched
when no status was recorded.

# Catalog

ListAllTools follows tools/list cursors and fails with ErrPaginationLoop when
a cursor repeats or the page limit is hit. SearchTools reads a single page:

	tools, err := mcp.ListAllTools(ctx, session, mcp.ListOptions{MaxPages: 50})
	page, err := mcp.SearchTools(ctx, session, "collection", cursor)

Tool input schemas are kept as raw JSON so property order survives.
*/
package mcp
