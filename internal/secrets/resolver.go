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
	"errors"
	"fmt"
	"sort"
)

// Resolver manages a chain of SecretBackends and resolves secrets
// by querying backends in priority order.
type Resolver struct {
	backends []SecretBackend
}

// NewResolver creates a secret resolver over the available backends,
// sorted by priority (highest first).
func NewResolver(backends ...SecretBackend) *Resolver {
	available := make([]SecretBackend, 0, len(backends))
	for _, b := range backends {
		if b != nil && b.Available() {
			available = append(available, b)
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Priority() > available[j].Priority()
	})

	return &Resolver{backends: available}
}

// Get returns the value from the first backend that has key.
func (r *Resolver) Get(ctx context.Context, key string) (string, error) {
	if len(r.backends) == 0 {
		return "", fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	var lastErr error
	for _, backend := range r.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", key, lastErr)
	}
	return "", fmt.Errorf("%w: %q", ErrSecretNotFound, key)
}

// Lookup is like Get but also reports which backend held the value.
func (r *Resolver) Lookup(ctx context.Context, key string) (string, SecretBackend, error) {
	for _, backend := range r.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, backend, nil
		}
	}
	_, err := r.Get(ctx, key)
	return "", nil, err
}

// Set stores a secret in the named backend, or in the highest priority
// writable backend when backendName is empty.
func (r *Resolver) Set(ctx context.Context, key string, value string, backendName string) error {
	if len(r.backends) == 0 {
		return fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	if backendName != "" {
		backend := r.Backend(backendName)
		if backend == nil {
			return fmt.Errorf("backend %q not found or unavailable", backendName)
		}
		if err := backend.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to set secret in %s: %w", backendName, err)
		}
		return nil
	}

	for _, backend := range r.backends {
		if isReadOnly(backend) {
			continue
		}
		if err := backend.Set(ctx, key, value); err != nil {
			if errors.Is(err, ErrReadOnlyBackend) {
				continue
			}
			return fmt.Errorf("failed to set secret in %s: %w", backend.Name(), err)
		}
		return nil
	}

	return fmt.Errorf("%w: no writable backend", ErrBackendUnavailable)
}

// Delete removes a secret from a specific backend or all writable backends.
func (r *Resolver) Delete(ctx context.Context, key string, backendName string) error {
	if len(r.backends) == 0 {
		return fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	if backendName != "" {
		backend := r.Backend(backendName)
		if backend == nil {
			return fmt.Errorf("backend %q not found or unavailable", backendName)
		}
		if err := backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete secret from %s: %w", backendName, err)
		}
		return nil
	}

	deleted := false
	for _, backend := range r.backends {
		if isReadOnly(backend) {
			continue
		}
		if err := backend.Delete(ctx, key); err != nil {
			if errors.Is(err, ErrSecretNotFound) || errors.Is(err, ErrReadOnlyBackend) {
				continue
			}
			return fmt.Errorf("failed to delete secret from %s: %w", backend.Name(), err)
		}
		deleted = true
	}

	if !deleted {
		return fmt.Errorf("%w: %q", ErrSecretNotFound, key)
	}
	return nil
}

// List returns all keys across backends. When a key is present in several
// backends the highest priority one is reported.
func (r *Resolver) List(ctx context.Context) ([]SecretMetadata, error) {
	if len(r.backends) == 0 {
		return nil, fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	seen := make(map[string]bool)
	var result []SecretMetadata
	for _, backend := range r.backends {
		keys, err := backend.List(ctx)
		if err != nil {
			continue
		}
		for _, key := range keys {
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, SecretMetadata{
				Key:      key,
				Backend:  backend.Name(),
				ReadOnly: isReadOnly(backend),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Backend returns the available backend with the given name, or nil.
func (r *Resolver) Backend(name string) SecretBackend {
	for _, b := range r.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// Backends returns the list of available backends in priority order.
func (r *Resolver) Backends() []SecretBackend {
	return r.backends
}
