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

package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/cli/format"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/completion"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/node"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/permissions"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/schema"
)

// NewCommand creates the tools command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Explore the tools exposed by the Forest MCP server",
		Long: `Explore the tools exposed by the Forest MCP server.

Commands:
  list      List every tool
  search    Search one page of tools by name
  fields    Show the argument fields of a tool`,
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newSearchCommand())
	cmd.AddCommand(newFieldsCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every tool",
		Long: `List every tool, following pagination until the catalog is exhausted.

Examples:
  forest-mcp tools list
  forest-mcp tools list --long
  forest-mcp tools list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, long)
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show full descriptions")

	return cmd
}

func newSearchCommand() *cobra.Command {
	var cursor string

	cmd := &cobra.Command{
		Use:   "search [filter]",
		Short: "Search one page of tools by name",
		Long: `Search one page of the catalog for tools whose name contains the
filter, ignoring case. Pass the printed cursor with --cursor to continue.

Examples:
  forest-mcp tools search describe
  forest-mcp tools search record --cursor <cursor>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return runSearch(cmd, filter, cursor)
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous search")

	return cmd
}

func newFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <tool>",
		Short: "Show the argument fields of a tool",
		Long: `Show the argument fields of a tool as derived from its input schema,
in declaration order.

Examples:
  forest-mcp tools fields describeCollection
  forest-mcp tools fields describeCollection --json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteToolNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(cmd, args[0])
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runList(cmd *cobra.Command, long bool) error {
	ctx := commandContext(cmd)

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}
	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	session, err := rt.Connect(ctx, mode)
	if err != nil {
		return err
	}
	defer session.Close()

	tools, err := mcp.ListAllTools(ctx, session, mcp.ListOptions{MaxPages: rt.Config.MCP.MaxPages})
	if err != nil {
		return shared.NewExecutionError("failed to list tools", err)
	}
	tools = allowedTools(rt.Policy, tools)

	w := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.WriteJSON(w, tools)
	}
	return printTools(w, tools, long, format.IsTTY())
}

func printTools(w io.Writer, tools []mcp.ToolDescriptor, long, isTTY bool) error {
	if len(tools) == 0 {
		fmt.Fprintln(w, "No tools found")
		return nil
	}

	for _, tool := range tools {
		if !long {
			fmt.Fprintf(w, "%-40s %s\n", tool.Name, firstLine(tool.Description))
			continue
		}
		fmt.Fprintln(w, shared.Header.Render(tool.Name))
		if tool.Description != "" {
			desc, err := format.Markdown(tool.Description, isTTY)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, desc)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nTotal: %d tool(s)\n", len(tools))
	return nil
}

// allowedTools drops the tools the policy hides.
func allowedTools(policy *permissions.ToolPolicy, tools []mcp.ToolDescriptor) []mcp.ToolDescriptor {
	if policy == nil {
		return tools
	}
	kept := make([]mcp.ToolDescriptor, 0, len(tools))
	for _, tool := range tools {
		if policy.Allows(tool.Name) {
			kept = append(kept, tool)
		}
	}
	return kept
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}

// discoveryHost builds a host for the discovery methods with the given
// tool selected.
func discoveryHost(rt *shared.Runtime, mode credentials.AuthMode, tool string) shared.LoadOptions {
	return shared.LoadOptions{LocalHost: &shared.LocalHost{
		Store: rt.Credentials,
		Params: map[string]any{
			node.ParamAuthentication: string(mode),
			node.ParamTool:           tool,
		},
		Log: rt.Logger,
	}}
}

func runSearch(cmd *cobra.Command, filter, cursor string) error {
	ctx := commandContext(cmd)

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}
	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	res, err := rt.Node.SearchTools(ctx, discoveryHost(rt, mode, ""), filter, cursor)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.WriteJSON(w, res)
	}
	return printSearch(w, res)
}

func printSearch(w io.Writer, res node.SearchResults) error {
	if len(res.Results) == 0 {
		fmt.Fprintln(w, "No tools found")
	}
	for _, r := range res.Results {
		fmt.Fprintf(w, "%-40s %s\n", r.Name, firstLine(r.Description))
	}
	if res.PaginationToken != "" {
		fmt.Fprintf(w, "\n%s %s\n", shared.RenderLabel("More results:"), "--cursor "+res.PaginationToken)
	}
	return nil
}

func runFields(cmd *cobra.Command, tool string) error {
	ctx := commandContext(cmd)

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}
	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	fields, err := rt.Node.ToolFields(ctx, discoveryHost(rt, mode, tool))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.WriteJSON(w, fields)
	}
	return printFields(w, fields)
}

func printFields(w io.Writer, fields []schema.FieldDescriptor) error {
	if len(fields) == 0 {
		fmt.Fprintln(w, "No fields (unknown tool, no arguments, or credentials not configured)")
		return nil
	}

	fmt.Fprintf(w, "%-30s %-10s %-9s %s\n", "FIELD", "TYPE", "REQUIRED", "DETAILS")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, f := range fields {
		required := "no"
		if f.Required {
			required = "yes"
		}
		fmt.Fprintf(w, "%-30s %-10s %-9s %s\n", f.ID, f.Type, required, fieldDetails(f))
	}
	return nil
}

func fieldDetails(f schema.FieldDescriptor) string {
	var parts []string
	if _, desc, ok := strings.Cut(f.DisplayName, " - "); ok {
		parts = append(parts, desc)
	}
	if len(f.Options) > 0 {
		names := make([]string, len(f.Options))
		for i, o := range f.Options {
			names[i] = o.Name
		}
		parts = append(parts, "one of: "+strings.Join(names, ", "))
	}
	if f.DefaultValue != "" {
		parts = append(parts, "default: "+f.DefaultValue)
	}
	return strings.Join(parts, "; ")
}
