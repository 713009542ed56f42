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

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	// EnvBackendPriority is the priority for environment variable backend.
	// This is the highest priority to allow environment overrides.
	EnvBackendPriority = 100

	// EnvSecretPrefix is the prefix for forest-mcp secret environment variables.
	EnvSecretPrefix = "FOREST_MCP_SECRET_"
)

// EnvBackend provides read-only access to secrets via environment variables
// named FOREST_MCP_SECRET_<KEY>, e.g. FOREST_MCP_SECRET_CREDENTIALS_FORESTMCPBEARERAPI
// for the key "credentials/forestMcpBearerApi".
type EnvBackend struct {
	lookup  func(string) (string, bool)
	environ func() []string
}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.LookupEnv, environ: os.Environ}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get retrieves a secret from the environment.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	if value, ok := e.lookup(EnvKey(key)); ok && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, EnvKey(key))
}

// Set returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Set(ctx context.Context, key string, value string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Delete(ctx context.Context, key string) error {
	return ErrReadOnlyBackend
}

// List returns the keys of all non-empty FOREST_MCP_SECRET_* variables.
// Case is not recoverable from the variable name, so keys are lowercased.
func (e *EnvBackend) List(ctx context.Context) ([]string, error) {
	var keys []string
	for _, kv := range e.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, EnvSecretPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, EnvSecretPrefix))
		keys = append(keys, strings.Replace(key, "_", "/", 1))
	}
	return keys, nil
}

// Available returns true as environment variables are always available.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns the backend priority (highest).
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}

// ReadOnly returns true as environment backend is read-only.
func (e *EnvBackend) ReadOnly() bool {
	return true
}

// EnvKey converts a secret key to its environment variable name.
// Example: "credentials/forestMcpBearerApi" -> "FOREST_MCP_SECRET_CREDENTIALS_FORESTMCPBEARERAPI"
func EnvKey(key string) string {
	normalized := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(key)
	return EnvSecretPrefix + strings.ToUpper(normalized)
}
