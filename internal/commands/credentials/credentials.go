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

package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/completion"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/commands/shared"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/schema"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/secrets"
	"github.com/ForestAdmin/n8n-nodes-forest/schemas"
)

type setOptions struct {
	serverURL    string
	token        string
	accessToken  string
	refreshToken string
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	authStyle    string
	expiresIn    time.Duration
	backend      string
	noInput      bool
}

// NewCommand creates the credentials command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage Forest MCP credentials",
		Long: `Manage the credential records used to reach the Forest MCP server.

Records are kept in the secret chain, highest priority first:
  1. Environment variables (FOREST_MCP_SECRET_CREDENTIALS_<TYPE>, read-only)
  2. System keychain
  3. Encrypted file

The --auth flag selects the record: bearerAuth (default) or oAuth2.

Commands:
  set       Store a credential record
  show      Show the stored record with tokens masked
  list      List stored records and their backends
  delete    Remove a record`,
	}

	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newDeleteCommand())

	return cmd
}

func newSetCommand() *cobra.Command {
	opts := &setOptions{}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a credential record",
		Long: `Store a credential record.

Bearer records need --server-url and --token. When the token is omitted it
is read from stdin, or prompted for on a terminal.

OAuth2 records (--auth oAuth2) need --server-url and --access-token. With
--refresh-token and --token-url the access token is refreshed automatically
when it is about to expire.

Examples:
  forest-mcp credentials set --server-url https://app.forestadmin.com --token <token>
  echo "$TOKEN" | forest-mcp credentials set --server-url https://app.forestadmin.com
  forest-mcp --auth oAuth2 credentials set --server-url https://app.forestadmin.com \
    --access-token <at> --refresh-token <rt> --token-url https://auth.example/token --client-id forest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.serverURL, "server-url", "", "Forest server URL")
	cmd.Flags().StringVar(&opts.token, "token", "", "Bearer token")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "OAuth2 access token")
	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "OAuth2 refresh token")
	cmd.Flags().StringVar(&opts.tokenURL, "token-url", "", "OAuth2 token endpoint")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "OAuth2 scopes, space separated")
	cmd.Flags().StringVar(&opts.authStyle, "client-auth", "header", "How client credentials reach the token endpoint (header, body)")
	cmd.Flags().DurationVar(&opts.expiresIn, "expires-in", 0, "Lifetime of the access token")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Target backend (keychain, file)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completion.CompleteSecretsBackend)
	cmd.Flags().BoolVar(&opts.noInput, "no-input", false, "Never prompt")

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored record with tokens masked",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored records and their backends",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func newDeleteCommand() *cobra.Command {
	var backend string
	var force bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a record",
		Long: `Remove the record selected by --auth.

Requires confirmation unless --force is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, backend, force)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "Target backend (keychain, file)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completion.CompleteSecretsBackend)
	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runSet(cmd *cobra.Command, opts *setOptions) error {
	ctx := commandContext(cmd)

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}

	interactive := !opts.noInput && !shared.IsNonInteractive()
	if err := completeOptions(cmd.InOrStdin(), mode, opts, interactive); err != nil {
		return err
	}

	rec, err := buildRecord(mode, opts, time.Now())
	if err != nil {
		return err
	}
	if err := validateRecord(mode, rec); err != nil {
		return err
	}

	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	logger := log.Discard()
	resolver := shared.NewSecretsResolver(cfg, logger)
	store := credentials.NewSecretStore(resolver, credentials.WithLogger(logger))

	if err := store.Save(ctx, mode.CredentialType(), rec, opts.backend); err != nil {
		if errors.Is(err, secrets.ErrBackendUnavailable) {
			return shared.NewExecutionError("no writable secret backend", fmt.Errorf("%w\n\nTry:\n  1. Use --backend to pick another backend\n  2. Set %s=<master key> to enable the encrypted file\n  3. Export %s=<record JSON>",
				err, secrets.MasterKeyEnv, secrets.EnvKey(credentials.SecretKey(mode.CredentialType()))))
		}
		return shared.NewExecutionError("failed to store credentials", err)
	}

	backendUsed := opts.backend
	if backendUsed == "" {
		if _, b, err := resolver.Lookup(ctx, credentials.SecretKey(mode.CredentialType())); err == nil {
			backendUsed = b.Name()
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Stored %s credentials in %s backend", mode, backendUsed)))
	return nil
}

// completeOptions fills a missing secret from stdin, or from a form on a
// terminal.
func completeOptions(stdin io.Reader, mode credentials.AuthMode, opts *setOptions, interactive bool) error {
	secret := &opts.token
	if mode == credentials.OAuth2 {
		secret = &opts.accessToken
	}

	if *secret == "" && !interactive && stdin != nil {
		value, err := readSecret(stdin)
		if err != nil {
			return shared.NewInvalidInputError("failed to read token from stdin", err)
		}
		*secret = value
	}

	if !interactive || (opts.serverURL != "" && *secret != "") {
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Your Forest server, e.g. https://app.forestadmin.com").
				Value(&opts.serverURL).
				Validate(required("server URL")),
			huh.NewInput().
				Title(secretTitle(mode)).
				EchoMode(huh.EchoModePassword).
				Value(secret).
				Validate(required("token")),
		),
	)
	if err := form.Run(); err != nil {
		return shared.NewInvalidInputError("input canceled", err)
	}
	return nil
}

func secretTitle(mode credentials.AuthMode) string {
	if mode == credentials.OAuth2 {
		return "Access token"
	}
	return "Bearer token"
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

// buildRecord assembles the record stored for mode.
func buildRecord(mode credentials.AuthMode, opts *setOptions, now time.Time) (credentials.Record, error) {
	serverURL := strings.TrimSpace(opts.serverURL)
	if serverURL == "" {
		return nil, shared.NewInvalidInputError("--server-url is required", nil)
	}

	if mode == credentials.BearerAuth {
		token := strings.TrimSpace(opts.token)
		if token == "" {
			return nil, shared.NewInvalidInputError("--token is required", nil)
		}
		return credentials.Record{"serverUrl": serverURL, "token": token}, nil
	}

	accessToken := strings.TrimSpace(opts.accessToken)
	if accessToken == "" && opts.refreshToken == "" {
		return nil, shared.NewInvalidInputError("--access-token or --refresh-token is required", nil)
	}
	if opts.refreshToken != "" && opts.tokenURL == "" {
		return nil, shared.NewInvalidInputError("--token-url is required with --refresh-token", nil)
	}
	if opts.authStyle != "header" && opts.authStyle != "body" {
		return nil, shared.NewInvalidInputError(fmt.Sprintf("--client-auth must be header or body, got %q", opts.authStyle), nil)
	}

	tokenData := map[string]any{"token_type": "Bearer"}
	if accessToken != "" {
		tokenData["access_token"] = accessToken
	}
	if opts.refreshToken != "" {
		tokenData["refresh_token"] = opts.refreshToken
	}
	if opts.expiresIn > 0 {
		tokenData["expiry"] = now.Add(opts.expiresIn).UTC().Format(time.RFC3339)
		tokenData["expires_in"] = int64(opts.expiresIn.Seconds())
	}

	rec := credentials.Record{
		"serverUrl":      serverURL,
		"oauthTokenData": tokenData,
		"authentication": opts.authStyle,
	}
	for key, value := range map[string]string{
		"accessTokenUrl": opts.tokenURL,
		"clientId":       opts.clientID,
		"clientSecret":   opts.clientSecret,
		"scope":          opts.scope,
	} {
		if value != "" {
			rec[key] = value
		}
	}
	return rec, nil
}

// validateRecord checks rec against the embedded schema for mode.
func validateRecord(mode credentials.AuthMode, rec credentials.Record) error {
	raw := schemas.GetBearerSchema()
	if mode == credentials.OAuth2 {
		raw = schemas.GetOAuth2Schema()
	}

	validator, err := schema.CompileValidator(credentials.SecretKey(mode.CredentialType()), raw)
	if err != nil {
		return shared.NewExecutionError("invalid credential schema", err)
	}
	if err := validator.Validate(rec); err != nil {
		return shared.NewInvalidInputError("invalid credentials", err)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}
	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	rec, err := rt.Credentials.Credentials(ctx, mode.CredentialType())
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return shared.NewExecutionError(fmt.Sprintf("no %s credentials stored", mode), fmt.Errorf("set them with: forest-mcp --auth %s credentials set", mode))
		}
		return shared.NewExecutionError("failed to read credentials", err)
	}

	masked := maskRecord(rec)
	endpoint := credentials.Resolve(ctx, mode, rt.Credentials, rt.Logger)

	w := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.WriteJSON(w, map[string]any{
			"auth":     string(mode),
			"endpoint": endpoint.EndpointURL,
			"ready":    endpoint.Ready(),
			"record":   masked,
		})
	}

	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Auth:    "), mode)
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Endpoint:"), endpoint.EndpointURL)
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Ready:   "), shared.RenderStatus(endpoint.Ready(), fmt.Sprint(endpoint.Ready())))
	return shared.WriteJSON(w, masked)
}

// secretFields are masked wherever they appear in a record.
var secretFields = map[string]bool{
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"clientSecret":  true,
}

func maskRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		switch t := v.(type) {
		case map[string]any:
			out[k] = maskRecord(t)
		case string:
			if secretFields[k] {
				out[k] = log.SanitizeToken(t)
			} else {
				out[k] = t
			}
		default:
			out[k] = v
		}
	}
	return out
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	resolver := shared.NewSecretsResolver(cfg, log.Discard())

	all, err := resolver.List(ctx)
	if err != nil {
		return shared.NewExecutionError("failed to list secrets", err)
	}

	var records []secrets.SecretMetadata
	for _, meta := range all {
		if strings.HasPrefix(strings.ToLower(meta.Key), "credentials/") {
			records = append(records, meta)
		}
	}

	w := cmd.OutOrStdout()
	if shared.GetJSON() {
		if records == nil {
			records = []secrets.SecretMetadata{}
		}
		return shared.WriteJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No credentials stored")
		return nil
	}

	fmt.Fprintf(w, "%-45s %-10s %s\n", "KEY", "BACKEND", "READ-ONLY")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, meta := range records {
		readOnly := "no"
		if meta.ReadOnly {
			readOnly = "yes"
		}
		fmt.Fprintf(w, "%-45s %-10s %s\n", meta.Key, meta.Backend, readOnly)
	}
	return nil
}

func runDelete(cmd *cobra.Command, backend string, force bool) error {
	ctx := commandContext(cmd)

	mode, err := shared.AuthMode()
	if err != nil {
		return err
	}

	if !force {
		if shared.IsNonInteractive() {
			return shared.NewInvalidInputError("refusing to delete without confirmation; pass --force", nil)
		}
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete the stored %s credentials?", mode)).
			Value(&confirmed).
			Run()
		if err != nil {
			return shared.NewInvalidInputError("input canceled", err)
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Deletion canceled")
			return nil
		}
	}

	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	store := credentials.NewSecretStore(shared.NewSecretsResolver(cfg, log.Discard()))

	if err := store.Delete(ctx, mode.CredentialType(), backend); err != nil {
		switch {
		case errors.Is(err, secrets.ErrSecretNotFound):
			return shared.NewExecutionError(fmt.Sprintf("no %s credentials stored", mode), nil)
		case errors.Is(err, secrets.ErrReadOnlyBackend):
			return shared.NewExecutionError("cannot delete from a read-only backend (environment variables)", nil)
		default:
			return shared.NewExecutionError("failed to delete credentials", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Deleted %s credentials", mode)))
	return nil
}
