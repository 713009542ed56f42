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

package credentials

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
)

const endpointSuffix = "/mcp"

// Resolve reads the record for mode from store and builds the endpoint.
func Resolve(ctx context.Context, mode AuthMode, store Store, logger *slog.Logger) ResolvedEndpoint {
	logger = log.WithComponent(log.OrDiscard(logger), "credentials")
	if store == nil {
		return ResolvedEndpoint{}
	}

	switch mode {
	case OAuth2:
		rec, err := store.Credentials(ctx, OAuth2CredentialType)
		if err != nil {
			logger.Warn("failed to load OAuth2 credentials, treating as not configured",
				slog.String("credential_type", OAuth2CredentialType), log.Error(err))
			return ResolvedEndpoint{}
		}
		return endpointFor(rec.String("serverUrl"), rec.String("oauthTokenData", "access_token"))

	default:
		rec, err := store.Credentials(ctx, BearerCredentialType)
		if err != nil {
			logger.Debug("bearer credentials unavailable",
				slog.String("credential_type", BearerCredentialType), log.Error(err))
			return ResolvedEndpoint{}
		}
		return endpointFor(rec.String("serverUrl"), rec.String("token"))
	}
}

// endpointFor expects trimmed inputs.
func endpointFor(serverURL, token string) ResolvedEndpoint {
	if token == "" {
		return ResolvedEndpoint{}
	}

	endpoint := ResolvedEndpoint{
		Headers: map[string]string{"Authorization": "Bearer " + token},
	}
	if serverURL != "" {
		if !strings.HasSuffix(serverURL, endpointSuffix) {
			serverURL += endpointSuffix
		}
		endpoint.EndpointURL = serverURL
	}
	return endpoint
}
