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

var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	configFlag  string
	authFlag    string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to the global flag variables.
// This is used by the root command to bind persistent flags.
func RegisterFlagPointers() (*bool, *bool, *bool, *string, *string) {
	return &verboseFlag, &quietFlag, &jsonFlag, &configFlag, &authFlag
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns whether verbose mode is enabled
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns whether quiet mode is enabled
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns whether JSON output mode is enabled
func GetJSON() bool {
	return jsonFlag
}

// GetConfigPath returns the config file path flag value
func GetConfigPath() string {
	return configFlag
}

// GetAuth returns the authentication mode flag value ("bearerAuth" or "oAuth2").
func GetAuth() string {
	return authFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// SetConfigPathForTest sets the config path (for testing only)
func SetConfigPathForTest(path string) {
	configFlag = path
}

// SetJSONForTest sets JSON output mode (for testing only)
func SetJSONForTest(enabled bool) {
	jsonFlag = enabled
}
