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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/config"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/node"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/permissions"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/secrets"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/tracing"
	"github.com/ForestAdmin/n8n-nodes-forest/pkg/httpclient"
)

// Runtime holds everything a command needs to talk to a Forest MCP server.
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Telemetry   *tracing.Provider
	Secrets     *secrets.Resolver
	Credentials *credentials.SecretStore
	Connector   *mcp.Connector
	Node        *node.Node
	Policy      *permissions.ToolPolicy

	metricsServer *http.Server
}

// LoadConfig loads the file named by --config, or the default location.
func LoadConfig() (*config.Config, error) {
	if path := GetConfigPath(); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// NewRuntime builds a Runtime from the configuration and global flags.
// Callers must Close it.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	v, _, _ := GetVersion()
	telemetryCfg := tracing.Config{
		ServiceName:    "forest-mcp",
		ServiceVersion: v,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	if cfg.Telemetry.TraceStdout {
		telemetryCfg.TraceWriter = os.Stderr
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		telemetryCfg.OTLP = tracing.OTLPConfig{
			Endpoint: cfg.Telemetry.OTLPEndpoint,
			Protocol: cfg.Telemetry.OTLPProtocol,
			Insecure: cfg.Telemetry.OTLPInsecure,
			Headers:  cfg.Telemetry.OTLPHeaders,
		}
	}
	provider, err := tracing.NewProvider(telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	provider.Install()

	rt := &Runtime{
		Config:    cfg,
		Logger:    logger,
		Telemetry: provider,
	}

	if cfg.Telemetry.MetricsAddr != "" {
		if err := rt.serveMetrics(cfg.Telemetry.MetricsAddr); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}

	rt.Secrets = NewSecretsResolver(cfg, logger)

	httpCfg := httpclient.Config{
		Timeout:   cfg.MCP.HTTPTimeout,
		UserAgent: cfg.MCP.UserAgent,
		Logger:    log.WithComponent(logger, "http"),
	}
	tokenClient, err := httpclient.New(httpCfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	rt.Credentials = credentials.NewSecretStore(rt.Secrets,
		credentials.WithHTTPClient(tokenClient),
		credentials.WithLogger(logger),
	)

	rt.Connector = mcp.NewConnector(mcp.ConnectorConfig{
		ClientName:     cfg.Client.Name,
		ClientVersion:  cfg.Client.Version,
		ConnectTimeout: cfg.MCP.ConnectTimeout,
		HTTP:           httpCfg,
	}, logger, provider.Metrics())

	rt.Policy = permissions.NewToolPolicy(cfg.MCP.AllowedTools, cfg.MCP.BlockedTools)

	rt.Node = node.New(rt.Connector,
		node.WithMetrics(provider.Metrics()),
		node.WithMaxPages(cfg.MCP.MaxPages),
		node.WithDefaultTimeout(cfg.MCP.CallTimeout),
		node.WithToolPolicy(rt.Policy),
		node.WithRateLimit(cfg.MCP.RateLimit),
	)

	return rt, nil
}

// NewSecretsResolver builds the secret chain: environment, keychain when
// enabled, then the encrypted file.
func NewSecretsResolver(cfg *config.Config, logger *slog.Logger) *secrets.Resolver {
	backends := []secrets.SecretBackend{secrets.NewEnvBackend()}
	if cfg.Secrets.Keychain {
		backends = append(backends, secrets.NewKeychainBackend())
	}

	fileBackend, err := secrets.NewFileBackend(cfg.Secrets.FilePath, "")
	if err != nil {
		logger.Debug("encrypted file backend unavailable", log.Error(err))
	} else {
		backends = append(backends, fileBackend)
	}

	return secrets.NewResolver(backends...)
}

// AuthMode parses the --auth flag.
func AuthMode() (credentials.AuthMode, error) {
	mode, err := credentials.ParseAuthMode(GetAuth())
	if err != nil {
		return "", NewInvalidInputError("invalid --auth", err)
	}
	return mode, nil
}

// Connect resolves the credentials for mode and opens a session.
func (r *Runtime) Connect(ctx context.Context, mode credentials.AuthMode) (mcp.Session, error) {
	endpoint := credentials.Resolve(ctx, mode, r.Credentials, r.Logger)
	if !endpoint.Ready() {
		return nil, &ExitError{
			Code:    ExitNotConfigured,
			Message: node.ErrServerURLRequired.Error(),
			Cause:   node.ErrServerURLRequired,
		}
	}
	session, err := r.Connector.Connect(ctx, endpoint.EndpointURL, endpoint.Headers)
	if err != nil {
		return nil, &ExitError{
			Code:    ExitConnectionFailed,
			Message: connectionMessage(err),
			Cause:   err,
		}
	}
	return session, nil
}

func connectionMessage(err error) string {
	var connErr *mcp.ConnectionError
	if errors.As(err, &connErr) {
		return connErr.UserMessage()
	}
	return mcp.UserMessage(mcp.ClassifyError(err))
}

// Close stops the metrics server and flushes telemetry.
func (r *Runtime) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if r.metricsServer != nil {
		errs = append(errs, r.metricsServer.Shutdown(ctx))
	}
	if r.Telemetry != nil {
		errs = append(errs, r.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (r *Runtime) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Telemetry.MetricsHandler())
	r.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := r.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Error("metrics server stopped", log.Error(err))
		}
	}()
	r.Logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Log.Level
	switch {
	case GetVerbose():
		level = "debug"
	case GetQuiet():
		level = "error"
	}
	return log.New(&log.Config{
		Level:     level,
		Format:    log.Format(cfg.Log.Format),
		Output:    os.Stderr,
		AddSource: cfg.Log.AddSource,
	})
}
