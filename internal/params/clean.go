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

// Package params prepares tool arguments from host parameter values.
//
// The host hands over loosely typed trees (decoded JSON, resource-mapper
// values). Clean removes the holes those trees carry so that only values the
// user actually set reach the MCP server.
package params

// Clean returns a recursively sanitized copy of v.
//
//   - nil values are treated as unset and dropped from objects
//   - objects that are empty after cleaning are dropped from their parent
//   - arrays drop nil entries, clean every other entry, and keep entries
//     that clean down to an empty object
//   - all other values pass through unchanged
//
// Clean is idempotent: Clean(Clean(v)) equals Clean(v). A top-level object
// that cleans to nothing is returned as an empty, non-nil map.
func Clean(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cleanObject(t)
	case []any:
		return cleanArray(t)
	default:
		return v
	}
}

// CleanObject is Clean specialised to an argument object.
func CleanObject(m map[string]any) map[string]any {
	return cleanObject(m)
}

func cleanObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if value == nil {
			continue
		}
		cleaned := Clean(value)
		if obj, ok := cleaned.(map[string]any); ok && len(obj) == 0 {
			continue
		}
		out[key] = cleaned
	}
	return out
}

func cleanArray(a []any) []any {
	out := make([]any, 0, len(a))
	for _, value := range a {
		if value == nil {
			continue
		}
		out = append(out, Clean(value))
	}
	return out
}
