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

package tracing

import (
	"context"
	"testing"
)

func TestNewCorrelationID(t *testing.T) {
	id := NewCorrelationID()

	if id == "" {
		t.Error("expected non-empty correlation ID")
	}
	if !id.IsValid() {
		t.Errorf("expected valid UUID format, got %q", id)
	}
	if len(id) != 36 {
		t.Errorf("expected length 36, got %d", len(id))
	}
}

func TestCorrelationID_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		id    CorrelationID
		valid bool
	}{
		{"valid UUID", CorrelationID("550e8400-e29b-41d4-a716-446655440000"), true},
		{"valid UUID uppercase", CorrelationID("550E8400-E29B-41D4-A716-446655440000"), true},
		{"empty", CorrelationID(""), false},
		{"too short", CorrelationID("550e8400-e29b-41d4"), false},
		{"missing hyphens", CorrelationID("550e8400e29b41d4a716446655440000"), false},
		{"invalid characters", CorrelationID("550e8400-e29b-41d4-a716-44665544000g"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestToContext_FromContext(t *testing.T) {
	id := CorrelationID("550e8400-e29b-41d4-a716-446655440000")
	ctx := ToContext(context.Background(), id)

	if got := FromContext(ctx); got != id {
		t.Errorf("FromContext() = %q, want %q", got, id)
	}
}

func TestFromContext_GeneratesNew(t *testing.T) {
	got := FromContext(context.Background())
	if !got.IsValid() {
		t.Errorf("FromContext() returned invalid UUID: %q", got)
	}
}

func TestFromContextOrEmpty(t *testing.T) {
	t.Run("returns ID when present", func(t *testing.T) {
		id := CorrelationID("550e8400-e29b-41d4-a716-446655440000")
		ctx := ToContext(context.Background(), id)

		if got := FromContextOrEmpty(ctx); got != id {
			t.Errorf("FromContextOrEmpty() = %q, want %q", got, id)
		}
	})

	t.Run("returns empty when not present", func(t *testing.T) {
		if got := FromContextOrEmpty(context.Background()); got != "" {
			t.Errorf("FromContextOrEmpty() = %q, want empty string", got)
		}
	})
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	if !id.IsValid() {
		t.Fatalf("expected a generated UUID, got %q", id)
	}
	if got := FromContextOrEmpty(ctx); got != id {
		t.Errorf("context carries %q, want %q", got, id)
	}

	again, same := EnsureCorrelationID(ctx)
	if same != id {
		t.Errorf("expected the existing ID %q to be kept, got %q", id, same)
	}
	if again != ctx {
		t.Error("expected the context to be returned unchanged")
	}
}
