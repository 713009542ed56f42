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

package call

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/cli/format"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/completion"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/jq"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/node"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/params"
)

type callOptions struct {
	params         string
	itemsFile      string
	continueOnFail bool
	jqExpr         string
	timeout        time.Duration
	noBinary       bool
	noValidate     bool
	outputDir      string
}

// NewCommand creates the call command.
func NewCommand() *cobra.Command {
	opts := &callOptions{}

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a Forest MCP tool",
		Long: `Call a tool on the Forest MCP server once per input item and print
the resulting items as JSON.

Arguments are given as a JSON object with --params, or as a JSON array
of objects with --items (one item per element, "-" reads stdin). Null
values and empty objects are removed before the call.

Image and audio results become attachments named data_0, data_1, ...
They are written to --output-dir when set.

Examples:
  forest-mcp call describeCollection --params '{"collectionName": "users"}'
  forest-mcp call listRecords --items batch.json --continue-on-fail
  forest-mcp call listRecords --params '{"collectionName": "users"}' --jq '.[0].json.content[0].text'`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteToolNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.params, "params", "", "Tool arguments as a JSON object")
	cmd.Flags().StringVar(&opts.itemsFile, "items", "", "JSON file holding an array of argument objects (- for stdin)")
	cmd.Flags().BoolVar(&opts.continueOnFail, "continue-on-fail", false, "Turn failed items into error records instead of stopping")
	cmd.Flags().StringVar(&opts.jqExpr, "jq", "", "jq expression applied to the output items")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-call timeout (default from config)")
	cmd.Flags().BoolVar(&opts.noBinary, "no-binary", false, "Keep image and audio blocks in the JSON output")
	cmd.Flags().BoolVar(&opts.noValidate, "no-validate", false, "Skip local validation against the tool's input schema")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for binary attachments")
	cmd.MarkFlagsMutuallyExclusive("params", "items")

	return cmd
}

func runCall(cmd *cobra.Command, tool string, opts *callOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}

	itemArgs, err := loadItems(opts, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var executor *jq.Executor
	if opts.jqExpr != "" {
		executor = jq.NewExecutor(jq.DefaultTimeout, jq.DefaultMaxInputSize)
		if err := executor.Validate(opts.jqExpr); err != nil {
			return shared.NewInvalidInputError("invalid --jq expression", err)
		}
	}

	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	host := newHost(rt.Credentials, rt.Logger, mode, tool, itemArgs, opts)

	spinner := shared.NewSpinner()
	spinner.Start("Calling " + tool)
	items, err := rt.Node.Execute(ctx, host)
	spinner.Stop()
	if err != nil {
		return err
	}

	var out any = items
	if executor != nil {
		out, err = executor.Execute(ctx, opts.jqExpr, items)
		if err != nil {
			return shared.NewExecutionError("jq failed", err)
		}
	}

	return printResult(cmd.OutOrStdout(), out)
}

// loadItems returns one argument object per item.
func loadItems(opts *callOptions, stdin io.Reader) ([]map[string]any, error) {
	if opts.itemsFile == "" {
		args, err := params.FromJSON(opts.params)
		if err != nil {
			return nil, shared.NewInvalidInputError("invalid --params", err)
		}
		return []map[string]any{args}, nil
	}

	var data []byte
	var err error
	if opts.itemsFile == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(opts.itemsFile)
	}
	if err != nil {
		return nil, shared.NewInvalidInputError("failed to read --items", err)
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, shared.NewInvalidInputError("--items must be a JSON array of objects", err)
	}
	if len(items) == 0 {
		return nil, shared.NewInvalidInputError("--items holds no items", nil)
	}
	return items, nil
}

func newHost(store credentials.Store, logger *slog.Logger, mode credentials.AuthMode, tool string, itemArgs []map[string]any, opts *callOptions) *shared.LocalHost {
	options := map[string]any{
		"convertToBinary": !opts.noBinary,
		"validateInput":   !opts.noValidate,
	}
	if opts.timeout > 0 {
		options["timeout"] = opts.timeout.Milliseconds()
	}

	host := &shared.LocalHost{
		Store: store,
		Params: map[string]any{
			node.ParamAuthentication: string(mode),
			node.ParamTool:           tool,
			node.ParamInputMode:      string(params.InputModeJSON),
			node.ParamOptions:        options,
		},
		Continue:  opts.continueOnFail,
		OutputDir: opts.outputDir,
		Log:       logger,
	}
	for i, args := range itemArgs {
		host.Items = append(host.Items, node.Item{JSON: map[string]any{}, PairedItem: i})
		host.ItemParam = append(host.ItemParam, map[string]any{node.ParamJSONParameters: args})
	}
	return host
}

func printResult(w io.Writer, v any) error {
	rendered, err := format.JSON(v, format.IsTTY() && !shared.GetJSON())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}
