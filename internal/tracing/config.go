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

package tracing

import (
	"io"
)

// Config holds observability configuration.
type Config struct {
	// ServiceName identifies this service in traces and metrics.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// SampleRate is the fraction of root traces to record (0.0 - 1.0).
	// Zero records nothing unless an exporter is configured, in which case
	// every trace is recorded.
	SampleRate float64

	// TraceWriter, when set, receives finished spans as JSON.
	TraceWriter io.Writer

	// PrettyPrint indents spans written to TraceWriter.
	PrettyPrint bool

	// OTLP, when Endpoint is set, exports spans to a collector.
	OTLP OTLPConfig
}

// OTLP transport protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// OTLPConfig configures the OTLP span exporter.
type OTLPConfig struct {
	// Endpoint is host:port of the collector (e.g. "localhost:4317").
	Endpoint string

	// Protocol is ProtocolGRPC (default) or ProtocolHTTP.
	Protocol string

	// Insecure disables TLS (for development only).
	Insecure bool

	// Headers are sent with each export request.
	Headers map[string]string
}

func (c Config) sampleRate() float64 {
	switch {
	case c.SampleRate > 1:
		return 1
	case c.SampleRate > 0:
		return c.SampleRate
	case c.TraceWriter != nil, c.OTLP.Endpoint != "":
		return 1
	default:
		return 0
	}
}
