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
Package secrets stores credential records for the forest-mcp harness.

Secrets are resolved through a priority-ordered chain of backends:

	env      (100) FOREST_MCP_SECRET_<KEY>, read-only
	keychain  (50) OS keychain, service "forest-mcp"
	file      (25) AES-256-GCM file keyed by FOREST_MCP_MASTER_KEY

Backends that are not usable in the current environment (a locked keychain,
no master key) are dropped when the Resolver is built.

	resolver := secrets.NewResolver(
	    secrets.NewEnvBackend(),
	    secrets.NewKeychainBackend(),
	    fileBackend,
	)

	value, err := resolver.Get(ctx, "credentials/forestMcpBearerApi")

Set writes to the highest priority writable backend unless a backend is
named explicitly; Get returns ErrSecretNotFound when no backend has the key.
*/
package secrets
