// Package httpclient builds the HTTP clients used to reach Forest MCP servers.
//
// The client factory composes transport layers to provide:
//   - Request logging with sanitized URLs (sensitive params and userinfo redacted)
//   - User-Agent header injection
//   - Correlation ID propagation for distributed tracing
//   - TLS 1.2+ with secure defaults
//   - Connection pooling
//
// Requests are never retried. A failed tool call is reported to the workflow
// as-is, so a POST is never replayed against the server.
//
// Example usage:
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
// Record HTTP error statuses so callers can classify a failure even when the
// layer above the transport only reports a message:
//
//	rec := &httpclient.StatusRecorder{}
//	client.Transport = rec.Wrap(client.Transport)
//	...
//	err = rec.WrapError(err) // *StatusError when a 4xx/5xx was seen
//
// # Security
//
//   - Sensitive query parameters (api_key, token, password, etc.) are redacted from logs
//   - Authorization headers are never logged
//   - TLS 1.2 minimum with certificate validation enabled
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: successful requests (2xx status)
//   - Warn level: failed requests (4xx/5xx status, errors)
//   - Fields: method, url (sanitized), status, duration_ms, error
package httpclient
