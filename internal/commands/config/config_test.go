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

package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/config"
)

func runConfig(t *testing.T, path string, jsonOut bool, args ...string) (string, error) {
	t.Helper()
	shared.SetConfigPathForTest(path)
	shared.SetJSONForTest(jsonOut)
	t.Cleanup(func() {
		shared.SetConfigPathForTest("")
		shared.SetJSONForTest(false)
	})

	cmd := NewConfigCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigShowCommand(t *testing.T) {
	tests := []struct {
		name        string
		setupConfig string
		want        string
		wantErr     bool
	}{
		{
			name:    "no config file",
			wantErr: true,
		},
		{
			name: "partial config keeps defaults",
			setupConfig: `mcp:
  max_pages: 7
`,
			want: "max_pages: 7",
		},
		{
			name:        "invalid log level",
			setupConfig: "log:\n  level: loud\n",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.setupConfig != "" {
				if err := os.WriteFile(path, []byte(tt.setupConfig), 0600); err != nil {
					t.Fatalf("failed to write config: %v", err)
				}
			}

			out, err := runConfig(t, path, false, "show")
			if (err != nil) != tt.wantErr {
				t.Fatalf("show error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			if !strings.Contains(out, "name: n8n-forest-client") {
				t.Errorf("output missing default client name:\n%s", out)
			}
		})
	}
}

func TestConfigShowJSON(t *testing.T) {
	t.Setenv("FOREST_MCP_MAX_PAGES", "3")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mcp:\n  max_pages: 9\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := runConfig(t, path, true, "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if cfg.MCP.MaxPages != 3 {
		t.Errorf("MaxPages = %d, want environment override 3", cfg.MCP.MaxPages)
	}
}

func TestConfigPathCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	out, err := runConfig(t, path, false, "path")
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("path = %q, want %q", strings.TrimSpace(out), path)
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if _, err := runConfig(t, path, false, "init"); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.MCP.MaxPages != config.Default().MCP.MaxPages {
		t.Errorf("MaxPages = %d, want default", cfg.MCP.MaxPages)
	}

	_, err = runConfig(t, path, false, "init")
	if err == nil {
		t.Fatal("second init should refuse to overwrite")
	}
	if code := shared.ExitCodeFor(err); code != shared.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, shared.ExitInvalidInput)
	}

	if _, err := runConfig(t, path, false, "init", "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestConfigValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("mcp:\n  max_pages: 5\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("telemetry:\n  sample_rate: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := runConfig(t, good, true, "validate")
	if err != nil {
		t.Fatalf("validate good: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = runConfig(t, bad, true, "validate")
	if err == nil {
		t.Fatal("validate bad should fail")
	}
	if code := shared.ExitCodeFor(err); code != shared.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, shared.ExitInvalidInput)
	}
	if !strings.Contains(out, "sample_rate") {
		t.Errorf("output should name the bad key: %s", out)
	}
}
