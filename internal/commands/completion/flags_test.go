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

package completion

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
)

func completionNames(completions []string) map[string]bool {
	names := make(map[string]bool, len(completions))
	for _, comp := range completions {
		name, _, _ := strings.Cut(comp, "\t")
		names[name] = true
	}
	return names
}

func TestCompleteAuthModes(t *testing.T) {
	completions, directive := CompleteAuthModes(nil, nil, "")

	if len(completions) != 2 {
		t.Errorf("expected 2 auth modes, got %d", len(completions))
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}

	names := completionNames(completions)
	for _, mode := range []credentials.AuthMode{credentials.BearerAuth, credentials.OAuth2} {
		if !names[string(mode)] {
			t.Errorf("expected auth mode %q not found", mode)
		}
	}
	for name := range names {
		if _, err := credentials.ParseAuthMode(name); err != nil {
			t.Errorf("completion %q is not accepted by --auth: %v", name, err)
		}
	}
}

func TestCompleteSecretsBackend(t *testing.T) {
	completions, _ := CompleteSecretsBackend(nil, nil, "")

	names := completionNames(completions)
	if !names["keychain"] || !names["file"] {
		t.Errorf("unexpected backends: %v", completions)
	}
	if names["env"] {
		t.Error("env backend is read-only and should not be offered")
	}
}

func TestSafeCompletionWrapper(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		results, directive := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
			panic("boom")
		})
		if len(results) != 0 {
			t.Errorf("expected no results, got %v", results)
		}
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
		}
	})

	t.Run("nil becomes empty", func(t *testing.T) {
		results, _ := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		})
		if results == nil {
			t.Error("expected non-nil results")
		}
	})
}

func TestCompletionCommand(t *testing.T) {
	root := &cobra.Command{Use: "forest-mcp"}
	root.AddCommand(NewCommand())

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out strings.Builder
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s failed: %v", shell, err)
			}
			if !strings.Contains(out.String(), "forest-mcp") {
				t.Errorf("script for %s does not mention the command name", shell)
			}
		})
	}

	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for unsupported shell")
	}
}
