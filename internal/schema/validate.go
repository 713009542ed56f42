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
	"fmt"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

// Validator checks tool arguments against a compiled input schema.
type Validator struct {
	tool   string
	schema *jsonschema.Schema
}

// CompileValidator compiles a tool's input schema. An empty schema yields a
// nil Validator, which accepts everything.
func CompileValidator(tool string, raw json.RawMessage) (*Validator, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	s, err := jsonschema.CompileString(url.PathEscape(tool)+".json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid input schema for tool %s: %w", tool, err)
	}
	return &Validator{tool: tool, schema: s}, nil
}

// Validate returns a *ValidationError listing every violation in args.
func (v *Validator) Validate(args map[string]any) error {
	if v == nil {
		return nil
	}

	// Round-trip so Go-typed values (ints, typed slices) reach the
	// validator in their JSON shapes.
	doc, err := normalize(args)
	if err != nil {
		return &foresterrors.ValidationError{
			Field:   v.tool,
			Message: fmt.Sprintf("arguments are not JSON-encodable: %v", err),
		}
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &foresterrors.ValidationError{Field: v.tool, Message: err.Error()}
	}

	var issues []foresterrors.Issue
	collectLeaves(ve, &issues)
	return &foresterrors.ValidationError{Field: v.tool, Issues: issues}
}

func normalize(args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func collectLeaves(err *jsonschema.ValidationError, out *[]foresterrors.Issue) {
	if len(err.Causes) == 0 {
		*out = append(*out, foresterrors.Issue{
			Path:    pointerToPath(err.InstanceLocation),
			Message: err.Message,
		})
		return
	}
	for _, c := range err.Causes {
		collectLeaves(c, out)
	}
}

// pointerToPath turns a JSON pointer such as "/filters/0/value" into
// "filters.0.value".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	segs := strings.Split(ptr, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		segs[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return strings.Join(segs, ".")
}
