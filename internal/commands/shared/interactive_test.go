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
	"testing"
)

func TestIsNonInteractive(t *testing.T) {
	indicators := []string{"FOREST_MCP_NON_INTERACTIVE", "CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "JENKINS_HOME"}

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"explicit opt-out", "FOREST_MCP_NON_INTERACTIVE", "true"},
		{"generic CI", "CI", "true"},
		{"generic CI numeric", "CI", "1"},
		{"GitHub Actions", "GITHUB_ACTIONS", "true"},
		{"GitLab", "GITLAB_CI", "true"},
		{"Jenkins home path", "JENKINS_HOME", "/var/jenkins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range indicators {
				t.Setenv(k, "")
			}
			t.Setenv(tt.key, tt.value)

			if !IsNonInteractive() {
				t.Errorf("IsNonInteractive() = false with %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestIsCIEnvironment_IgnoresFalseValues(t *testing.T) {
	for _, k := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "JENKINS_HOME"} {
		t.Setenv(k, "")
	}
	t.Setenv("CI", "false")

	if isCIEnvironment() {
		t.Error("CI=false must not be treated as CI")
	}
}
