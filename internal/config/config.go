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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/permissions"
	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config represents the complete forest-mcp configuration.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	MCP       MCPConfig       `yaml:"mcp"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ClientConfig is the identity announced to the MCP server during initialize.
type ClientConfig struct {
	// Name is the client name.
	// Default: n8n-forest-client
	Name string `yaml:"name"`

	// Version is the client version.
	// Default: 1.0.0
	Version string `yaml:"version"`
}

// MCPConfig configures sessions with the Forest MCP server.
type MCPConfig struct {
	// CallTimeout bounds a single tool call when the caller sets none.
	// Environment: FOREST_MCP_CALL_TIMEOUT
	// Default: 60s
	CallTimeout time.Duration `yaml:"call_timeout"`

	// ConnectTimeout bounds the initialize handshake.
	// Environment: FOREST_MCP_CONNECT_TIMEOUT
	// Default: 30s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// MaxPages caps how many tools/list pages are followed.
	// Environment: FOREST_MCP_MAX_PAGES
	// Default: 100
	MaxPages int `yaml:"max_pages"`

	// UserAgent is sent on every HTTP request.
	// Default: forest-mcp/1.0
	UserAgent string `yaml:"user_agent"`

	// HTTPTimeout caps a whole HTTP exchange including streamed bodies.
	// Default: 5m
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// AllowedTools restricts calls and listings to tools matching these
	// glob patterns. Empty allows every tool.
	// Environment: FOREST_MCP_ALLOWED_TOOLS (comma-separated)
	AllowedTools []string `yaml:"allowed_tools,omitempty"`

	// BlockedTools rejects tools matching these glob patterns, even when
	// they also match AllowedTools.
	// Environment: FOREST_MCP_BLOCKED_TOOLS (comma-separated)
	BlockedTools []string `yaml:"blocked_tools,omitempty"`

	// RateLimit caps tool calls per second across a batch. Zero is unlimited.
	// Environment: FOREST_MCP_RATE_LIMIT
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

// SecretsConfig configures where credential records are stored.
type SecretsConfig struct {
	// FilePath is the encrypted secrets file. Empty uses
	// <config dir>/forest-mcp/secrets.enc.
	// Environment: FOREST_MCP_SECRETS_FILE
	FilePath string `yaml:"file_path,omitempty"`

	// Keychain enables the OS keychain backend.
	// Environment: FOREST_MCP_KEYCHAIN
	// Default: true
	Keychain bool `yaml:"keychain"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: FOREST_MCP_LOG_LEVEL, LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: text
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	AddSource bool `yaml:"add_source"`
}

// TelemetryConfig configures traces and metrics.
type TelemetryConfig struct {
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	// Environment: FOREST_MCP_METRICS_ADDR
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// TraceStdout writes finished spans to stderr as JSON.
	// Environment: FOREST_MCP_TRACE_STDOUT
	TraceStdout bool `yaml:"trace_stdout"`

	// SampleRate is the fraction of root traces recorded (0.0 - 1.0).
	// Default: 1.0
	SampleRate float64 `yaml:"sample_rate"`

	// OTLPEndpoint, when set, exports spans to a collector at host:port.
	// Environment: OTEL_EXPORTER_OTLP_ENDPOINT
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// OTLPProtocol is grpc or http.
	// Environment: FOREST_MCP_OTLP_PROTOCOL
	// Default: grpc
	OTLPProtocol string `yaml:"otlp_protocol,omitempty"`

	// OTLPInsecure disables TLS to the collector.
	// Environment: FOREST_MCP_OTLP_INSECURE
	OTLPInsecure bool `yaml:"otlp_insecure,omitempty"`

	// OTLPHeaders are sent with each export request.
	OTLPHeaders map[string]string `yaml:"otlp_headers,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Name:    "n8n-forest-client",
			Version: "1.0.0",
		},
		MCP: MCPConfig{
			CallTimeout:    60 * time.Second,
			ConnectTimeout: 30 * time.Second,
			MaxPages:       100,
			UserAgent:      "forest-mcp/1.0",
			HTTPTimeout:    5 * time.Minute,
		},
		Secrets: SecretsConfig{
			Keychain: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			SampleRate: 1.0,
		},
	}
}

// Load loads configuration from an optional YAML file and the environment.
// Environment variables take precedence over file-based configuration.
// If configPath is empty, only environment variables are used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &foresterrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &foresterrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// LoadDefault loads the file at ConfigPath when it exists, and the
// environment otherwise.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Load("")
	}
	if _, err := os.Stat(path); err != nil {
		return Load("")
	}
	return Load(path)
}

// applyDefaults fills zero values so minimal files work.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Client.Name == "" {
		c.Client.Name = defaults.Client.Name
	}
	if c.Client.Version == "" {
		c.Client.Version = defaults.Client.Version
	}
	if c.MCP.CallTimeout == 0 {
		c.MCP.CallTimeout = defaults.MCP.CallTimeout
	}
	if c.MCP.ConnectTimeout == 0 {
		c.MCP.ConnectTimeout = defaults.MCP.ConnectTimeout
	}
	if c.MCP.MaxPages == 0 {
		c.MCP.MaxPages = defaults.MCP.MaxPages
	}
	if c.MCP.UserAgent == "" {
		c.MCP.UserAgent = defaults.MCP.UserAgent
	}
	if c.MCP.HTTPTimeout == 0 {
		c.MCP.HTTPTimeout = defaults.MCP.HTTPTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// loadFromFile merges a YAML file over the current values.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv applies FOREST_MCP_* and LOG_* overrides. Malformed values
// are ignored.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("FOREST_MCP_CALL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.MCP.CallTimeout = d
		}
	}
	if val := os.Getenv("FOREST_MCP_CONNECT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.MCP.ConnectTimeout = d
		}
	}
	if val := os.Getenv("FOREST_MCP_MAX_PAGES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MCP.MaxPages = n
		}
	}
	if val := os.Getenv("FOREST_MCP_ALLOWED_TOOLS"); val != "" {
		c.MCP.AllowedTools = splitList(val)
	}
	if val := os.Getenv("FOREST_MCP_BLOCKED_TOOLS"); val != "" {
		c.MCP.BlockedTools = splitList(val)
	}
	if val := os.Getenv("FOREST_MCP_RATE_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.MCP.RateLimit = f
		}
	}

	if val := os.Getenv("FOREST_MCP_SECRETS_FILE"); val != "" {
		c.Secrets.FilePath = val
	}
	if val := os.Getenv("FOREST_MCP_KEYCHAIN"); val != "" {
		c.Secrets.Keychain = parseBool(val)
	}

	if val := os.Getenv("FOREST_MCP_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = parseBool(val)
	}
	if parseBool(os.Getenv("FOREST_MCP_DEBUG")) {
		c.Log.Level = "debug"
		c.Log.AddSource = true
	}

	if val := os.Getenv("FOREST_MCP_METRICS_ADDR"); val != "" {
		c.Telemetry.MetricsAddr = val
	}
	if val := os.Getenv("FOREST_MCP_TRACE_STDOUT"); val != "" {
		c.Telemetry.TraceStdout = parseBool(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("FOREST_MCP_OTLP_PROTOCOL"); val != "" {
		c.Telemetry.OTLPProtocol = strings.ToLower(val)
	}
	if val := os.Getenv("FOREST_MCP_OTLP_INSECURE"); val != "" {
		c.Telemetry.OTLPInsecure = parseBool(val)
	}
}

// splitList splits a comma-separated list and drops empty entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(val string) bool {
	return val == "1" || strings.EqualFold(val, "true")
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Client.Name) == "" {
		errs = append(errs, "client.name must not be empty")
	}
	if strings.TrimSpace(c.Client.Version) == "" {
		errs = append(errs, "client.version must not be empty")
	}

	if c.MCP.CallTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("mcp.call_timeout must be positive, got %v", c.MCP.CallTimeout))
	}
	if c.MCP.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("mcp.connect_timeout must be positive, got %v", c.MCP.ConnectTimeout))
	}
	if c.MCP.MaxPages < 1 {
		errs = append(errs, fmt.Sprintf("mcp.max_pages must be at least 1, got %d", c.MCP.MaxPages))
	}
	if c.MCP.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("mcp.http_timeout must be positive, got %v", c.MCP.HTTPTimeout))
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, warning, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if err := permissions.ValidatePatterns(c.MCP.AllowedTools); err != nil {
		errs = append(errs, "mcp.allowed_tools: "+err.Error())
	}
	if err := permissions.ValidatePatterns(c.MCP.BlockedTools); err != nil {
		errs = append(errs, "mcp.blocked_tools: "+err.Error())
	}
	if c.MCP.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("mcp.rate_limit must not be negative, got %v", c.MCP.RateLimit))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("telemetry.sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate))
	}
	switch c.Telemetry.OTLPProtocol {
	case "", "grpc", "http":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.otlp_protocol must be one of [grpc, http], got %q", c.Telemetry.OTLPProtocol))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}
