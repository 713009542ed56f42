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
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage forest-mcp configuration.

Subcommands:
  show      Display the effective configuration (file + environment)
  path      Show config file location
  init      Write a configuration file with the defaults
  validate  Check the configuration file`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigValidateCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = runConfigShow

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration in effect: defaults, then the file, then
FOREST_MCP_* environment overrides. Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file",
		Long: `Load the configuration file and environment overrides and report
whether the result is valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd.OutOrStdout())
		},
	}
}

// configPath returns the --config flag value or the default location.
func configPath() (string, error) {
	if path := shared.GetConfigPath(); path != "" {
		return path, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return path, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.WriteJSON(w, cfg)
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	source := path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		source = path + " (not found, defaults and environment only)"
	}
	return outputConfigYAML(w, source, cfg)
}

func runConfigInit(w io.Writer, force bool) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	settings, err := config.NewSettingsFile(path)
	if err != nil {
		return err
	}

	return settings.WithLock(func() error {
		if _, err := os.Stat(path); err == nil && !force {
			return shared.NewInvalidInputError(fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
		}
		if err := settings.Save(config.Default()); err != nil {
			return shared.NewExecutionError("failed to write configuration", err)
		}
		fmt.Fprintln(w, shared.RenderOK("Wrote "+path))
		return nil
	})
}

func runConfigValidate(w io.Writer) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if _, err := config.Load(path); err != nil {
		if shared.GetJSON() {
			_ = shared.WriteJSON(w, map[string]any{"valid": false, "path": path, "error": describe(err)})
		}
		return shared.NewInvalidInputError("invalid configuration", err)
	}

	if shared.GetJSON() {
		return shared.WriteJSON(w, map[string]any{"valid": true, "path": path})
	}
	fmt.Fprintln(w, shared.RenderOK(path+" is valid"))
	return nil
}

// describe flattens a config error with its cause.
func describe(err error) string {
	msg := err.Error()
	if cause := errors.Unwrap(err); cause != nil {
		msg += ": " + cause.Error()
	}
	return msg
}

// outputConfigYAML outputs config in YAML format
func outputConfigYAML(w io.Writer, source string, cfg *config.Config) error {
	fmt.Fprintf(w, "Configuration: %s\n", source)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return encoder.Close()
}
