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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const describeCollectionSchema = `{
	"type": "object",
	"properties": {
		"collectionName": {"type": "string", "description": "The collection"},
		"limit": {"type": "integer"},
		"filters": {"type": "object"},
		"fields": {"type": "array", "items": {"type": "string"}},
		"ascending": {"type": "boolean"},
		"mode": {"type": "string", "enum": ["fast", "full", 3, null]},
		"anything": {}
	},
	"required": ["collectionName"]
}`

func TestMapFields(t *testing.T) {
	raw := json.RawMessage(describeCollectionSchema)
	fields := MapFields(raw, RequiredFields(raw))
	require.Len(t, fields, 7)

	ids := make([]string, len(fields))
	for i, f := range fields {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"collectionName", "limit", "filters", "fields", "ascending", "mode", "anything"}, ids)

	assert.Equal(t, FieldDescriptor{
		ID:          "collectionName",
		DisplayName: "collectionName - The collection",
		Type:        TypeString,
		Required:    true,
	}, fields[0])

	assert.Equal(t, TypeNumber, fields[1].Type)
	assert.Equal(t, "limit", fields[1].DisplayName)
	assert.False(t, fields[1].Required)

	assert.Equal(t, TypeObject, fields[2].Type)
	assert.Equal(t, "{}", fields[2].DefaultValue)

	assert.Equal(t, TypeArray, fields[3].Type)
	assert.Equal(t, "[]", fields[3].DefaultValue)

	assert.Equal(t, TypeBoolean, fields[4].Type)
	assert.Empty(t, fields[4].DefaultValue)

	assert.Equal(t, TypeOptions, fields[5].Type)
	assert.Equal(t, []Option{
		{Name: "fast", Value: "fast"},
		{Name: "full", Value: "full"},
		{Name: "3", Value: float64(3)},
		{Name: "null", Value: nil},
	}, fields[5].Options)

	assert.Equal(t, TypeString, fields[6].Type)
}

func TestMapFields_PreservesDocumentOrder(t *testing.T) {
	raw := json.RawMessage(`{"type":"object","properties":{"z":{"type":"string"},"a":{"type":"string"},"m":{"type":"string"}}}`)
	fields := MapFields(raw, nil)
	require.Len(t, fields, 3)
	assert.Equal(t, "z", fields[0].ID)
	assert.Equal(t, "a", fields[1].ID)
	assert.Equal(t, "m", fields[2].ID)
}

func TestMapFields_Empty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not an object", raw: `{"type":"string"}`},
		{name: "no type", raw: `{"properties":{"a":{"type":"string"}}}`},
		{name: "no properties", raw: `{"type":"object"}`},
		{name: "empty properties", raw: `{"type":"object","properties":{}}`},
		{name: "invalid json", raw: `{"type":`},
		{name: "empty input", raw: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := MapFields(json.RawMessage(tt.raw), nil)
			assert.NotNil(t, fields)
			assert.Empty(t, fields)
		})
	}
}

func TestMapFields_EmptyEnumKeepsType(t *testing.T) {
	raw := json.RawMessage(`{"type":"object","properties":{"kind":{"type":"integer","enum":[]}}}`)
	fields := MapFields(raw, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, TypeNumber, fields[0].Type)
	assert.Nil(t, fields[0].Options)
}

func TestMapFields_ScalarEnumIgnored(t *testing.T) {
	raw := json.RawMessage(`{"type":"object","properties":{"kind":{"type":"string","enum":"x"}}}`)
	fields := MapFields(raw, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, TypeString, fields[0].Type)
	assert.Nil(t, fields[0].Options)
}

func TestMapFields_DottedKeys(t *testing.T) {
	raw := json.RawMessage(`{"type":"object","properties":{"a.b":{"type":"number"}}}`)
	fields := MapFields(raw, []string{"a.b"})
	require.Len(t, fields, 1)
	assert.Equal(t, "a.b", fields[0].ID)
	assert.True(t, fields[0].Required)
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"collectionName"}, RequiredFields(json.RawMessage(describeCollectionSchema)))
	assert.Nil(t, RequiredFields(json.RawMessage(`{"type":"object"}`)))
	assert.Nil(t, RequiredFields(json.RawMessage(`nope`)))
}
