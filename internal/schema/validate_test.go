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

package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

func TestValidator(t *testing.T) {
	v, err := CompileValidator("describe", json.RawMessage(describeCollectionSchema))
	require.NoError(t, err)
	require.NotNil(t, v)

	t.Run("valid arguments", func(t *testing.T) {
		assert.NoError(t, v.Validate(map[string]any{
			"collectionName": "users",
			"limit":          10,
			"fields":         []string{"id", "email"},
		}))
	})

	t.Run("collects every violation", func(t *testing.T) {
		err := v.Validate(map[string]any{"limit": "ten", "ascending": "yes"})
		require.Error(t, err)

		var ve *foresterrors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.GreaterOrEqual(t, len(ve.Issues), 3)

		paths := map[string]bool{}
		for _, issue := range ve.Issues {
			paths[issue.Path] = true
		}
		assert.True(t, paths["limit"])
		assert.True(t, paths["ascending"])
		assert.True(t, paths[""])

		assert.Contains(t, err.Error(), "limit: ")
		assert.Contains(t, err.Error(), "(root): ")
		assert.Contains(t, err.Error(), ", ")
	})

	t.Run("nested paths are dotted", func(t *testing.T) {
		nested, err := CompileValidator("nested", json.RawMessage(`{
			"type": "object",
			"properties": {
				"filters": {"type": "array", "items": {"type": "object", "properties": {"value": {"type": "string"}}}}
			}
		}`))
		require.NoError(t, err)

		err = nested.Validate(map[string]any{"filters": []any{map[string]any{"value": 1}}})
		var ve *foresterrors.ValidationError
		require.True(t, errors.As(err, &ve))
		require.Len(t, ve.Issues, 1)
		assert.Equal(t, "filters.0.value", ve.Issues[0].Path)
	})

	t.Run("nil arguments validate as an empty object", func(t *testing.T) {
		err := v.Validate(nil)
		var ve *foresterrors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "", ve.Issues[0].Path)
	})
}

func TestCompileValidator_EmptySchema(t *testing.T) {
	v, err := CompileValidator("noop", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, v.Validate(map[string]any{"anything": true}))
}

func TestCompileValidator_InvalidSchema(t *testing.T) {
	_, err := CompileValidator("broken", json.RawMessage(`{"type": 12}`))
	assert.Error(t, err)
}

func TestPointerToPath(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"/":          "",
		"/a":         "a",
		"/a/0/b":     "a.0.b",
		"/a~1b/c~0d": "a/b.c~d",
	}
	for in, want := range tests {
		assert.Equal(t, want, pointerToPath(in), in)
	}
}
