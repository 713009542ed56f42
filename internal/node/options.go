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

package node

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultCallTimeout applies when the options leave timeout unset.
const DefaultCallTimeout = 60 * time.Second

// Options are the per-item execution options.
type Options struct {
	// ConvertToBinary turns image and audio blocks into attachments.
	ConvertToBinary bool

	// Timeout bounds the tool call.
	Timeout time.Duration

	// ValidateInput checks arguments against the tool's input schema
	// before calling it.
	ValidateInput bool
}

// ParseOptions reads the options collection. Missing or malformed entries
// keep their defaults; a non-positive timeout falls back to defaultTimeout.
func ParseOptions(v any, defaultTimeout time.Duration) Options {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultCallTimeout
	}
	opts := Options{
		ConvertToBinary: true,
		Timeout:         defaultTimeout,
		ValidateInput:   true,
	}

	m, ok := v.(map[string]any)
	if !ok {
		return opts
	}
	if b, ok := m["convertToBinary"].(bool); ok {
		opts.ConvertToBinary = b
	}
	if b, ok := m["validateInput"].(bool); ok {
		opts.ValidateInput = b
	}
	if ms, ok := toMillis(m["timeout"]); ok && ms > 0 {
		opts.Timeout = time.Duration(ms) * time.Millisecond
	}
	return opts
}

func toMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToolName reads the selected tool from a plain string or a resource
// locator value ({"__rl": true, "mode": "list", "value": "<name>"}).
func ToolName(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		s, _ := t["value"].(string)
		return strings.TrimSpace(s)
	default:
		return ""
	}
}

func stringParam(v any) string {
	s, _ := v.(string)
	return s
}
