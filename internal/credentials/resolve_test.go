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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records map[string]Record
	err     error
	asked   []string
}

func (f *fakeStore) Credentials(ctx context.Context, credentialType string) (Record, error) {
	f.asked = append(f.asked, credentialType)
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[credentialType]
	if !ok {
		return nil, errors.New("credentials not set")
	}
	return rec, nil
}

func TestResolve_Bearer(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   ResolvedEndpoint
	}{
		{
			name:   "appends endpoint suffix",
			record: Record{"serverUrl": "https://x.test", "token": "abc"},
			want: ResolvedEndpoint{
				Headers:     map[string]string{"Authorization": "Bearer abc"},
				EndpointURL: "https://x.test/mcp",
			},
		},
		{
			name:   "keeps existing suffix and trims",
			record: Record{"serverUrl": "  https://x.test/mcp ", "token": " abc\n"},
			want: ResolvedEndpoint{
				Headers:     map[string]string{"Authorization": "Bearer abc"},
				EndpointURL: "https://x.test/mcp",
			},
		},
		{
			name:   "blank token",
			record: Record{"serverUrl": "https://x.test", "token": "   "},
			want:   ResolvedEndpoint{},
		},
		{
			name:   "token without server url",
			record: Record{"token": "abc"},
			want: ResolvedEndpoint{
				Headers: map[string]string{"Authorization": "Bearer abc"},
			},
		},
		{
			name:   "non-string token",
			record: Record{"serverUrl": "https://x.test", "token": 42},
			want:   ResolvedEndpoint{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{records: map[string]Record{BearerCredentialType: tt.record}}
			got := Resolve(context.Background(), BearerAuth, store, nil)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{BearerCredentialType}, store.asked)
		})
	}
}

func TestResolve_OAuth2(t *testing.T) {
	store := &fakeStore{records: map[string]Record{
		OAuth2CredentialType: {
			"serverUrl":      "https://x.test",
			"oauthTokenData": map[string]any{"access_token": " tok "},
		},
	}}

	got := Resolve(context.Background(), OAuth2, store, nil)
	assert.Equal(t, "https://x.test/mcp", got.EndpointURL)
	assert.Equal(t, map[string]string{"Authorization": "Bearer tok"}, got.Headers)
	assert.True(t, got.Ready())
}

func TestResolve_NotConfigured(t *testing.T) {
	tests := []struct {
		name  string
		mode  AuthMode
		store Store
	}{
		{"bearer lookup error", BearerAuth, &fakeStore{err: errors.New("no credentials")}},
		{"oauth refresh error", OAuth2, &fakeStore{err: errors.New("refresh token expired")}},
		{"oauth without token data", OAuth2, &fakeStore{records: map[string]Record{
			OAuth2CredentialType: {"serverUrl": "https://x.test"},
		}}},
		{"oauth token data wrong shape", OAuth2, &fakeStore{records: map[string]Record{
			OAuth2CredentialType: {"serverUrl": "https://x.test", "oauthTokenData": "tok"},
		}}},
		{"nil store", BearerAuth, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(context.Background(), tt.mode, tt.store, nil)
			assert.Equal(t, ResolvedEndpoint{}, got)
			assert.False(t, got.Ready())
		})
	}
}

func TestParseAuthMode(t *testing.T) {
	mode, err := ParseAuthMode("")
	require.NoError(t, err)
	assert.Equal(t, BearerAuth, mode)

	mode, err = ParseAuthMode("oAuth2")
	require.NoError(t, err)
	assert.Equal(t, OAuth2, mode)
	assert.Equal(t, OAuth2CredentialType, mode.CredentialType())
	assert.Equal(t, BearerCredentialType, BearerAuth.CredentialType())

	_, err = ParseAuthMode("basic")
	assert.Error(t, err)
}

func TestRecord_String(t *testing.T) {
	rec := Record{
		"a": map[string]any{"b": " v "},
		"n": 1,
	}
	assert.Equal(t, "v", rec.String("a", "b"))
	assert.Equal(t, "", rec.String("a", "missing"))
	assert.Equal(t, "", rec.String("n"))
	assert.Equal(t, "", rec.String("n", "deeper"))
}
