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

package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/tracing"
	"github.com/ForestAdmin/n8n-nodes-forest/pkg/httpclient"
)

// ConnectorConfig configures how sessions are opened.
type ConnectorConfig struct {
	// ClientName and ClientVersion identify this client during initialize.
	ClientName    string
	ClientVersion string

	// ConnectTimeout bounds the initialize handshake (defaults to 30s).
	ConnectTimeout time.Duration

	// HTTP configures the underlying HTTP client.
	HTTP httpclient.Config
}

// DefaultConnectorConfig returns the configuration used when none is given.
func DefaultConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		ClientName:     "n8n-forest-client",
		ClientVersion:  "1.0.0",
		ConnectTimeout: 30 * time.Second,
		HTTP:           httpclient.DefaultConfig(),
	}
}

// Connector opens sessions against Forest MCP servers. Every Connect opens a
// fresh session; nothing is pooled or retried.
type Connector struct {
	config  ConnectorConfig
	logger  *slog.Logger
	metrics *tracing.Metrics
	tracer  trace.Tracer
}

// NewConnector creates a Connector. logger and metrics may be nil.
func NewConnector(config ConnectorConfig, logger *slog.Logger, metrics *tracing.Metrics) *Connector {
	defaults := DefaultConnectorConfig()
	if config.ClientName == "" {
		config.ClientName = defaults.ClientName
	}
	if config.ClientVersion == "" {
		config.ClientVersion = defaults.ClientVersion
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.HTTP.Timeout <= 0 {
		config.HTTP.Timeout = defaults.HTTP.Timeout
	}
	if config.HTTP.UserAgent == "" {
		config.HTTP.UserAgent = defaults.HTTP.UserAgent
	}
	logger = log.WithComponent(log.OrDiscard(logger), "mcp")
	if config.HTTP.Logger == nil {
		config.HTTP.Logger = logger
	}

	return &Connector{
		config:  config,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("forest-mcp/mcp"),
	}
}

// NormalizeEndpoint returns endpoint as an absolute URL, assuming https when
// no http:// or https:// scheme is given. Unusable input yields a
// *ConnectionError of kind KindInvalidURL.
func NormalizeEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	lower := strings.ToLower(endpoint)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		endpoint = "https://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", &ConnectionError{Kind: KindInvalidURL, Cause: err}
	}
	if err := checkEndpoint(endpoint, u); err != nil {
		return "", &ConnectionError{Kind: KindInvalidURL, Cause: err}
	}
	return u.String(), nil
}

// checkEndpoint rejects URLs that parse but cannot name a server: no host,
// a dangling port separator, a port out of range, or a second scheme left in
// the host or path (such as "ftp://x" given without http(s)).
func checkEndpoint(endpoint string, u *url.URL) error {
	if u.Hostname() == "" {
		return fmt.Errorf("no host in %q", endpoint)
	}
	if strings.HasSuffix(u.Host, ":") {
		return fmt.Errorf("empty port in %q", endpoint)
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("port %s out of range in %q", p, endpoint)
		}
	}
	_, rest, _ := strings.Cut(endpoint, "://")
	rest, _, _ = strings.Cut(rest, "?")
	rest, _, _ = strings.Cut(rest, "#")
	if strings.Contains(rest, "://") {
		return fmt.Errorf("unsupported scheme in %q", endpoint)
	}
	return nil
}

// Connect opens and initializes a session. On failure it returns a
// *ConnectionError and no session; a partly opened client is closed first.
func (c *Connector) Connect(ctx context.Context, endpoint string, headers map[string]string) (Session, error) {
	ctx, span := c.tracer.Start(ctx, "mcp.connect", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	session, err := c.connect(ctx, endpoint, headers)
	if err != nil {
		var ce *ConnectionError
		if !errors.As(err, &ce) {
			ce = &ConnectionError{Kind: ClassifyError(err), Cause: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, ce.Kind.String())
		c.metrics.RecordConnect(ctx, ce.Kind.String())
		c.logger.Warn("mcp connection failed",
			slog.String(log.EndpointKey, ce.Endpoint),
			slog.String("kind", ce.Kind.String()),
			log.Error(ce.Cause),
		)
		return nil, ce
	}

	span.SetAttributes(attribute.String("mcp.endpoint", session.Endpoint()))
	c.metrics.RecordConnect(ctx, tracing.OutcomeSuccess)
	c.logger.Debug("mcp session opened", slog.String(log.EndpointKey, session.Endpoint()))
	return session, nil
}

func (c *Connector) connect(ctx context.Context, endpoint string, headers map[string]string) (*Client, error) {
	normalized, err := NormalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	fail := func(err error) error {
		return &ConnectionError{Kind: ClassifyError(err), Endpoint: normalized, Cause: err}
	}

	httpClient, err := httpclient.New(c.config.HTTP)
	if err != nil {
		return nil, fail(err)
	}
	recorder := &httpclient.StatusRecorder{}
	httpClient.Transport = recorder.Wrap(httpClient.Transport)

	mcpClient, err := client.NewStreamableHttpClient(normalized,
		transport.WithHTTPHeaders(headers),
		transport.WithHTTPBasicClient(httpClient),
	)
	if err != nil {
		return nil, fail(err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, fail(recorder.WrapError(err))
	}

	initCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	_, err = mcpClient.Initialize(initCtx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    c.config.ClientName,
				Version: c.config.ClientVersion,
			},
		},
	})
	if err != nil {
		_ = mcpClient.Close()
		return nil, fail(recorder.WrapError(err))
	}

	return newClient(mcpClient, normalized, c.logger, c.metrics), nil
}
