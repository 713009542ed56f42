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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/secrets"
)

// DefaultRefreshThreshold is how close to expiry an OAuth2 access token is
// refreshed.
const DefaultRefreshThreshold = 5 * time.Minute

// SecretStore keeps credential records as JSON documents in a secret chain.
// OAuth2 records carrying a refresh token and an expiry are refreshed when
// they are about to expire, and the new token is written back.
type SecretStore struct {
	secrets    *secrets.Resolver
	httpClient *http.Client
	logger     *slog.Logger
	threshold  time.Duration
	now        func() time.Time
}

// StoreOption configures a SecretStore.
type StoreOption func(*SecretStore)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) StoreOption {
	return func(s *SecretStore) { s.httpClient = c }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *SecretStore) { s.logger = l }
}

// WithRefreshThreshold overrides DefaultRefreshThreshold.
func WithRefreshThreshold(d time.Duration) StoreOption {
	return func(s *SecretStore) { s.threshold = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *SecretStore) { s.now = now }
}

// NewSecretStore creates a store over resolver.
func NewSecretStore(resolver *secrets.Resolver, opts ...StoreOption) *SecretStore {
	s := &SecretStore{
		secrets:   resolver,
		threshold: DefaultRefreshThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.WithComponent(log.OrDiscard(s.logger), "credentials")
	return s
}

// SecretKey returns the secret key a credential type is stored under.
func SecretKey(credentialType string) string {
	return "credentials/" + credentialType
}

// Credentials implements Store.
func (s *SecretStore) Credentials(ctx context.Context, credentialType string) (Record, error) {
	raw, backend, err := s.secrets.Lookup(ctx, SecretKey(credentialType))
	if err != nil {
		return nil, fmt.Errorf("credentials %s: %w", credentialType, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("credentials %s: invalid record: %w", credentialType, err)
	}
	if rec == nil {
		rec = Record{}
	}

	if credentialType == OAuth2CredentialType && s.needsRefresh(rec) {
		if err := s.refresh(ctx, rec); err != nil {
			return nil, fmt.Errorf("credentials %s: %w", credentialType, err)
		}
		s.writeBack(ctx, credentialType, rec, backend)
	}
	return rec, nil
}

// Save stores rec under credentialType. An empty backendName selects the
// highest priority writable backend.
func (s *SecretStore) Save(ctx context.Context, credentialType string, rec Record, backendName string) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode credentials %s: %w", credentialType, err)
	}
	return s.secrets.Set(ctx, SecretKey(credentialType), string(data), backendName)
}

// Delete removes the record for credentialType.
func (s *SecretStore) Delete(ctx context.Context, credentialType string, backendName string) error {
	return s.secrets.Delete(ctx, SecretKey(credentialType), backendName)
}

// needsRefresh is true only when a refresh is both possible and due.
func (s *SecretStore) needsRefresh(rec Record) bool {
	if rec.String("oauthTokenData", "refresh_token") == "" || rec.String("accessTokenUrl") == "" {
		return false
	}
	expiry, ok := tokenExpiry(rec)
	if !ok {
		return rec.String("oauthTokenData", "access_token") == ""
	}
	return !expiry.After(s.now().Add(s.threshold))
}

func (s *SecretStore) refresh(ctx context.Context, rec Record) error {
	cfg := &oauth2.Config{
		ClientID:     rec.String("clientId"),
		ClientSecret: rec.String("clientSecret"),
		Endpoint: oauth2.Endpoint{
			TokenURL:  rec.String("accessTokenUrl"),
			AuthStyle: authStyle(rec.String("authentication")),
		},
		Scopes: strings.Fields(rec.String("scope")),
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := cfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: rec.String("oauthTokenData", "refresh_token"),
	}).Token()
	if err != nil {
		return fmt.Errorf("refresh OAuth2 token: %w", err)
	}

	data, _ := asMap(rec["oauthTokenData"])
	data["access_token"] = token.AccessToken
	if token.RefreshToken != "" {
		data["refresh_token"] = token.RefreshToken
	}
	if token.TokenType != "" {
		data["token_type"] = token.TokenType
	}
	if !token.Expiry.IsZero() {
		data["expiry"] = token.Expiry.UTC().Format(time.RFC3339)
		data["expires_in"] = int64(token.Expiry.Sub(s.now()).Seconds())
	}

	s.logger.Info("refreshed OAuth2 access token",
		slog.String("access_token", log.SanitizeToken(token.AccessToken)))
	return nil
}

// writeBack persists a refreshed record to the backend it came from.
// Errors are logged, not returned.
func (s *SecretStore) writeBack(ctx context.Context, credentialType string, rec Record, from secrets.SecretBackend) {
	if from == nil {
		return
	}
	if ro, ok := from.(secrets.ReadOnlyBackend); ok && ro.ReadOnly() {
		s.logger.Debug("refreshed token not persisted: read-only backend", slog.String("backend", from.Name()))
		return
	}
	if err := s.Save(ctx, credentialType, rec, from.Name()); err != nil {
		s.logger.Warn("failed to persist refreshed token", slog.String("backend", from.Name()), log.Error(err))
	}
}

// authStyle maps the record's "authentication" setting ("header" or "body").
func authStyle(v string) oauth2.AuthStyle {
	if v == "body" {
		return oauth2.AuthStyleInParams
	}
	return oauth2.AuthStyleInHeader
}

// tokenExpiry reads oauthTokenData.expiry (RFC 3339). Without it, the exp
// claim of a JWT access token is used.
func tokenExpiry(rec Record) (time.Time, bool) {
	raw := rec.String("oauthTokenData", "expiry")
	if raw == "" {
		return jwtExpiry(rec.String("oauthTokenData", "access_token"))
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
