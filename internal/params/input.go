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

package params

import (
	"encoding/json"
	"fmt"
	"strings"

	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

// InputMode selects how tool arguments are supplied.
type InputMode string

const (
	// InputModeManual reads arguments from the resource-mapper field values.
	InputModeManual InputMode = "manual"
	// InputModeJSON reads arguments from a raw JSON object.
	InputModeJSON InputMode = "json"
)

// ParseInputMode maps a host parameter value to an InputMode. Anything that
// is not "json" is treated as manual.
func ParseInputMode(v any) InputMode {
	if s, ok := v.(string); ok && strings.EqualFold(s, string(InputModeJSON)) {
		return InputModeJSON
	}
	return InputModeManual
}

// FromResourceMapper extracts the field map from a resource-mapper value.
// The host stores the user's entries under "value"; a bare map is accepted
// as-is. A nil value yields an empty argument object.
func FromResourceMapper(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &foresterrors.ValidationError{
			Field:   "parameters",
			Message: fmt.Sprintf("expected an object, got %T", v),
		}
	}
	if _, hasMode := m["mappingMode"]; hasMode {
		inner, ok := m["value"].(map[string]any)
		if !ok || inner == nil {
			return map[string]any{}, nil
		}
		return inner, nil
	}
	if inner, ok := m["value"].(map[string]any); ok && len(m) == 1 {
		return inner, nil
	}
	return m, nil
}

// FromJSON accepts either a JSON string or an already-decoded object and
// returns it as an argument object. Empty strings yield an empty object.
func FromJSON(v any) (map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return map[string]any{}, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(t), &decoded); err != nil {
			return nil, &foresterrors.ValidationError{
				Field:      "jsonParameters",
				Message:    fmt.Sprintf("invalid JSON: %v", err),
				Suggestion: "Provide the tool arguments as a JSON object, e.g. {\"collectionName\": \"users\"}",
			}
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, &foresterrors.ValidationError{
				Field:   "jsonParameters",
				Message: "must be a JSON object",
			}
		}
		return obj, nil
	default:
		return nil, &foresterrors.ValidationError{
			Field:   "jsonParameters",
			Message: fmt.Sprintf("must be a JSON object, got %T", v),
		}
	}
}
