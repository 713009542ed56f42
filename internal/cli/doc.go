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
Package cli provides the root command and shared configuration for the forest-mcp CLI.

This package creates the main Cobra command tree and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	forest-mcp
	├── tools         List, search and describe server tools
	├── call          Call a tool once per input item
	├── credentials   Store, show and delete credentials
	├── config        Configuration management
	├── version       Show version
	└── help          Show help

# Global Flags

	--verbose, -v    Enable verbose output
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file
	--auth           bearerAuth (default) or oAuth2

# Error Handling

Errors are mapped to exit codes by HandleExitError:

  - Exit 0: Success
  - Exit 1: A tool call or item failed
  - Exit 2: Invalid input
  - Exit 3: Not configured
  - Exit 4: Connection failed
*/
package cli
