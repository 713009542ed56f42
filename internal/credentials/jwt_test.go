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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestJWTExpiry(t *testing.T) {
	exp := testNow.Add(2 * time.Minute).Truncate(time.Second)

	got, ok := jwtExpiry(signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = jwtExpiry(signedToken(t, jwt.RegisteredClaims{Subject: "user-1"}))
	assert.False(t, ok, "no exp claim")

	_, ok = jwtExpiry("opaque-token")
	assert.False(t, ok)

	_, ok = jwtExpiry("a.b.c")
	assert.False(t, ok, "malformed segments")
}

func TestNeedsRefresh_FallsBackToJWTExpiry(t *testing.T) {
	store := &SecretStore{threshold: DefaultRefreshThreshold, now: func() time.Time { return testNow }}

	record := func(access string) Record {
		return Record{
			"accessTokenUrl": "https://auth.test/token",
			"oauthTokenData": map[string]any{"access_token": access, "refresh_token": "r-1"},
		}
	}

	soon := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Minute))})
	later := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))})

	assert.True(t, store.needsRefresh(record(soon)))
	assert.False(t, store.needsRefresh(record(later)))
	assert.False(t, store.needsRefresh(record("opaque-token")), "opaque token without expiry is kept")
}
