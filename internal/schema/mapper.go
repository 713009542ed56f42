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

// Package schema converts MCP tool input schemas into host field descriptors
// and validates tool arguments against them.
package schema

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Field types understood by the host's resource mapper.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeOptions = "options"
)

// Option is one selectable value of an enumerated field.
type Option struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// FieldDescriptor describes one tool argument in the host's field format.
type FieldDescriptor struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"displayName"`
	Type         string   `json:"type"`
	Required     bool     `json:"required"`
	DefaultValue string   `json:"defaultValue,omitempty"`
	Options      []Option `json:"options,omitempty"`
}

// MapFields converts a JSON-Schema object into field descriptors, one per
// declared property, in the order the properties appear in raw.
//
// Schemas that are not of type "object" or declare no properties map to an
// empty slice.
func MapFields(raw json.RawMessage, required []string) []FieldDescriptor {
	fields := []FieldDescriptor{}
	if !gjson.ValidBytes(raw) {
		return fields
	}

	root := gjson.ParseBytes(raw)
	if root.Get("type").String() != TypeObject {
		return fields
	}
	props := root.Get("properties")
	if !props.IsObject() {
		return fields
	}

	isRequired := make(map[string]bool, len(required))
	for _, name := range required {
		isRequired[name] = true
	}

	props.ForEach(func(key, prop gjson.Result) bool {
		fields = append(fields, mapProperty(key.String(), prop, isRequired[key.String()]))
		return true
	})
	return fields
}

// RequiredFields returns the schema's "required" list.
func RequiredFields(raw json.RawMessage) []string {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	var names []string
	for _, r := range gjson.GetBytes(raw, "required").Array() {
		if r.Type == gjson.String {
			names = append(names, r.Str)
		}
	}
	return names
}

func mapProperty(key string, prop gjson.Result, required bool) FieldDescriptor {
	field := FieldDescriptor{
		ID:          key,
		DisplayName: key,
		Type:        mapType(prop.Get("type")),
		Required:    required,
	}

	if desc := prop.Get("description"); desc.Exists() && desc.String() != "" {
		field.DisplayName = key + " - " + desc.String()
	}

	switch field.Type {
	case TypeObject:
		field.DefaultValue = "{}"
	case TypeArray:
		field.DefaultValue = "[]"
	}

	// Array() wraps a scalar in a one-element slice, so only a real array counts.
	if enum := prop.Get("enum"); enum.IsArray() && len(enum.Array()) > 0 {
		values := enum.Array()
		field.Type = TypeOptions
		field.Options = make([]Option, len(values))
		for i, v := range values {
			field.Options[i] = Option{Name: optionName(v), Value: v.Value()}
		}
	}

	return field
}

func mapType(t gjson.Result) string {
	if t.Type != gjson.String {
		return TypeString
	}
	switch t.Str {
	case "string":
		return TypeString
	case "number", "integer":
		return TypeNumber
	case "boolean":
		return TypeBoolean
	case "array":
		return TypeArray
	case "object":
		return TypeObject
	default:
		return TypeString
	}
}

func optionName(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return "null"
	default:
		return v.Raw
	}
}
