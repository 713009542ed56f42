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

// Package credentials turns stored Forest MCP credentials into an endpoint
// URL and request headers.
//
// Resolution never fails: missing, unreadable or unrefreshable credentials
// resolve to an empty ResolvedEndpoint, which callers treat as "not yet
// configured".
package credentials

import (
	"context"
	"fmt"
	"strings"
)

// AuthMode selects which credential record is used.
type AuthMode string

const (
	// BearerAuth uses a static server URL and API token.
	BearerAuth AuthMode = "bearerAuth"

	// OAuth2 uses a server URL and an OAuth2 access token that the store may refresh.
	OAuth2 AuthMode = "oAuth2"
)

// Credential record types.
const (
	BearerCredentialType = "forestMcpBearerApi"
	OAuth2CredentialType = "forestMcpOAuth2Api"
)

// ParseAuthMode parses a host parameter value. An empty value selects BearerAuth.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(strings.TrimSpace(s)) {
	case "", BearerAuth:
		return BearerAuth, nil
	case OAuth2:
		return OAuth2, nil
	default:
		return "", fmt.Errorf("unknown authentication mode %q (want %s or %s)", s, BearerAuth, OAuth2)
	}
}

// CredentialType returns the record type read for this mode.
func (m AuthMode) CredentialType() string {
	if m == OAuth2 {
		return OAuth2CredentialType
	}
	return BearerCredentialType
}

// Record is a stored credential set as the host hands it over.
type Record map[string]any

// String returns the trimmed string at path, or "" when any segment is
// missing or the leaf is not a string.
func (r Record) String(path ...string) string {
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return strings.TrimSpace(s)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	default:
		return nil, false
	}
}

// Store looks up credential records by type. Implementations may refresh
// expiring OAuth2 tokens as part of the lookup.
type Store interface {
	Credentials(ctx context.Context, credentialType string) (Record, error)
}

// ResolvedEndpoint is where and how to reach the MCP server.
type ResolvedEndpoint struct {
	Headers     map[string]string
	EndpointURL string
}

// Ready reports whether an endpoint URL was resolved.
func (e ResolvedEndpoint) Ready() bool {
	return e.EndpointURL != ""
}
