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

/*
Package tracing provides correlation IDs, OpenTelemetry tracing, and metrics
for calls made to Forest MCP servers.

# Correlation IDs

Every execution gets a UUID correlation ID carried in the context. The HTTP
client forwards it as X-Correlation-ID so server-side logs can be joined with
the node's logs:

	ctx = tracing.ToContext(ctx, tracing.NewCorrelationID())

# Spans

Components start spans from the global tracer provider:

	ctx, span := otel.Tracer("forest-mcp/mcp").Start(ctx, "mcp.connect")
	defer span.End()

Until a Provider is installed the global provider is a no-op.

# Metrics

The Provider exports metrics through a Prometheus registry:

	provider, err := tracing.NewProvider(tracing.Config{ServiceName: "forest-mcp"})
	http.Handle("/metrics", provider.MetricsHandler())
	provider.Metrics().RecordToolCall(ctx, "describe", time.Second, nil)
*/
package tracing
