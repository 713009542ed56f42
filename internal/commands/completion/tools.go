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

package completion

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
)

// toolTimeout bounds the connection opened while completing.
const toolTimeout = 5 * time.Second

// CompleteToolNames completes the first argument with tool names from the
// configured server. Any failure yields no suggestions.
func CompleteToolNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
		defer cancel()

		tools, err := listTools(ctx)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return toolCompletions(tools, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
}

func listTools(ctx context.Context) ([]mcp.ToolDescriptor, error) {
	mode, err := shared.AuthMode()
	if err != nil {
		return nil, err
	}
	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return nil, err
	}
	defer rt.Close(context.Background())

	session, err := rt.Connect(ctx, mode)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	tools, err := mcp.ListAllTools(ctx, session, mcp.ListOptions{MaxPages: rt.Config.MCP.MaxPages})
	if err != nil {
		return nil, err
	}

	kept := tools[:0]
	for _, tool := range tools {
		if rt.Policy.Allows(tool.Name) {
			kept = append(kept, tool)
		}
	}
	return kept, nil
}

// toolCompletions formats tools with a name prefix as "name\tdescription".
func toolCompletions(tools []mcp.ToolDescriptor, prefix string) []string {
	completions := make([]string, 0, len(tools))
	for _, tool := range tools {
		if !strings.HasPrefix(tool.Name, prefix) {
			continue
		}
		desc, _, _ := strings.Cut(tool.Description, "\n")
		if desc == "" {
			completions = append(completions, tool.Name)
			continue
		}
		completions = append(completions, tool.Name+"\t"+desc)
	}
	return completions
}
