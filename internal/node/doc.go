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
Package node runs Forest MCP tools on behalf of a workflow host.

The host is reached only through the capability interfaces in this package:
ExecuteHost for batch execution and LoadOptionsHost for the discovery
methods that populate the tool picker and its parameter form.

# Execution

Execute resolves credentials once, opens one MCP session for the batch and
calls the selected tool for every input item in order:

	node := node.New(mcp.NewConnector(cfg, logger, metrics))
	items, err := node.Execute(ctx, host)

Each input item yields exactly one output item. Text blocks in the tool
result are parsed as JSON when possible; image and audio blocks become
binary attachments data_0, data_1, ... unless convertToBinary is off.

A failing item aborts the batch with an *ItemError, or, when the host asks
to continue on failure, becomes {"error": <message>}.

# Discovery

SearchTools and ToolFields return empty results while credentials are not
configured, so the host can render its form before setup is complete.
*/
package node
