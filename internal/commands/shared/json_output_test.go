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

package shared

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWriteJSON_ErrorEnvelope(t *testing.T) {
	idx := 3
	var buf bytes.Buffer
	err := WriteJSON(&buf, newErrorResponse("call", []JSONError{{
		Code:      ErrorCodeExecutionFailed,
		Message:   "collection does not exist",
		ItemIndex: &idx,
	}}))
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	if decoded["@version"] != "1.0" || decoded["command"] != "call" || decoded["success"] != false {
		t.Errorf("unexpected envelope: %v", decoded)
	}

	errs, ok := decoded["errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("expected one error, got %v", decoded["errors"])
	}
	entry := errs[0].(map[string]any)
	if entry["code"] != ErrorCodeExecutionFailed || entry["item_index"] != float64(3) {
		t.Errorf("unexpected error entry: %v", entry)
	}
	if _, ok := entry["suggestion"]; ok {
		t.Error("empty suggestion should be omitted")
	}
}

func TestWriteJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "{\n  \"a\": 1\n}\n"; got != want {
		t.Errorf("WriteJSON() = %q, want %q", got, want)
	}
}
