package jq

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestExecutor_Execute(t *testing.T) {
	items := []map[string]any{
		{"content": []any{map[string]any{"type": "text", "text": 42}}},
		{"error": "boom"},
	}

	tests := []struct {
		name       string
		expression string
		data       any
		want       any
		wantErr    bool
	}{
		{
			name:       "empty expression returns data as-is",
			expression: "",
			data:       map[string]any{"foo": "bar"},
			want:       map[string]any{"foo": "bar"},
		},
		{
			name:       "simple field extraction",
			expression: ".foo",
			data:       map[string]any{"foo": "bar"},
			want:       "bar",
		},
		{
			name:       "typed slices are normalized",
			expression: "map(.content[0].text // .error)",
			data:       items,
			want:       []any{float64(42), "boom"},
		},
		{
			name:       "multiple outputs become a slice",
			expression: ".[]",
			data:       []int{1, 2},
			want:       []any{float64(1), float64(2)},
		},
		{
			name:       "no output",
			expression: "empty",
			data:       map[string]any{},
			want:       nil,
		},
		{
			name:       "invalid expression",
			expression: ".[",
			data:       map[string]any{"foo": "bar"},
			wantErr:    true,
		},
		{
			name:       "runtime error",
			expression: ".foo + 1",
			data:       map[string]any{"foo": "bar"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewExecutor(DefaultTimeout, DefaultMaxInputSize)
			got, err := executor.Execute(context.Background(), tt.expression, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Execute() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestExecutor_Validate(t *testing.T) {
	executor := NewExecutor(0, 0)

	for expr, wantErr := range map[string]bool{
		"":          false,
		".foo":      false,
		".[":        true,
		"undefined": true,
	} {
		err := executor.Validate(expr)
		if (err != nil) != wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", expr, err, wantErr)
		}
	}
}

func TestExecutor_Timeout(t *testing.T) {
	executor := NewExecutor(100*time.Millisecond, DefaultMaxInputSize)

	_, err := executor.Execute(context.Background(), "while(true; . + 1)", 0)
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("Execute() error = %v, want timeout", err)
	}
}

func TestExecutor_InputTooLarge(t *testing.T) {
	executor := NewExecutor(DefaultTimeout, 8)

	_, err := executor.Execute(context.Background(), ".", map[string]any{"key": "a long value"})
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("Execute() error = %v, want size error", err)
	}
}
