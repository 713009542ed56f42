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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/completion"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for forest-mcp
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forest-mcp",
		Short: "forest-mcp - call Forest Admin MCP tools",
		Long: `forest-mcp connects to a Forest Admin MCP server, lists the tools it
exposes and calls them with JSON arguments, one invocation per input item.

Run 'forest-mcp credentials set' to store the server URL and token.
Run 'forest-mcp tools list' to see the tools your server exposes.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	verbose, quiet, json, config, auth := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/forest-mcp/config.yaml)")
	cmd.PersistentFlags().StringVar(auth, "auth", "", "Authentication mode: bearerAuth or oAuth2 (default: bearerAuth)")
	_ = cmd.RegisterFlagCompletionFunc("auth", completion.CompleteAuthModes)

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
