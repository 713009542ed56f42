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

package node

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ForestAdmin/n8n-nodes-forest/internal/credentials"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/log"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/mcp"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/params"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/permissions"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/schema"
	"github.com/ForestAdmin/n8n-nodes-forest/internal/tracing"
	foresterrors "github.com/ForestAdmin/n8n-nodes-forest/pkg/errors"
)

// Node executes Forest MCP tools for a workflow host.
type Node struct {
	connector      Connector
	metrics        *tracing.Metrics
	listOpts       mcp.ListOptions
	defaultTimeout time.Duration
	policy         *permissions.ToolPolicy
	limiter        *rate.Limiter
	tracer         trace.Tracer
}

// Option configures a Node.
type Option func(*Node)

// WithMetrics records per-item outcomes on m.
func WithMetrics(m *tracing.Metrics) Option {
	return func(n *Node) { n.metrics = m }
}

// WithMaxPages caps catalog pagination during schema lookups.
func WithMaxPages(pages int) Option {
	return func(n *Node) { n.listOpts.MaxPages = pages }
}

// WithDefaultTimeout sets the call timeout used when an item's options set none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(n *Node) { n.defaultTimeout = d }
}

// WithToolPolicy rejects calls to tools the policy does not allow and hides
// them from discovery.
func WithToolPolicy(p *permissions.ToolPolicy) Option {
	return func(n *Node) { n.policy = p }
}

// WithRateLimit spaces tool calls to at most perSecond. Zero or less
// disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(n *Node) {
		if perSecond <= 0 {
			n.limiter = nil
			return
		}
		n.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates a Node that opens sessions through connector.
func New(connector Connector, opts ...Option) *Node {
	n := &Node{
		connector:      connector,
		defaultTimeout: DefaultCallTimeout,
		tracer:         otel.Tracer("forest-mcp/node"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Execute calls the selected tool once per input item and returns one
// output item per input item, in order.
func (n *Node) Execute(ctx context.Context, host ExecuteHost) ([]Item, error) {
	items := host.InputItems()

	// Every request of the batch carries the same correlation ID.
	ctx, corrID := tracing.EnsureCorrelationID(ctx)
	logger := log.WithComponent(log.OrDiscard(host.Logger()), "node").
		With(slog.String(log.CorrelationIDKey, corrID.String()))

	ctx, span := n.tracer.Start(ctx, "node.execute",
		trace.WithAttributes(
			attribute.Int("node.items", len(items)),
			attribute.String("correlation.id", corrID.String()),
		),
	)
	defer span.End()

	authParam, err := host.NodeParameter(ParamAuthentication, 0)
	if err != nil {
		return nil, n.fail(span, &OperationError{Message: err.Error(), Cause: err})
	}
	mode, err := credentials.ParseAuthMode(stringParam(authParam))
	if err != nil {
		return nil, n.fail(span, &OperationError{Message: err.Error(), Cause: err})
	}
	logger = logger.With(slog.String(log.AuthModeKey, string(mode)))

	endpoint := credentials.Resolve(ctx, mode, host, logger)
	if !endpoint.Ready() {
		return nil, n.fail(span, &OperationError{Message: ErrServerURLRequired.Error(), Cause: ErrServerURLRequired})
	}

	session, err := n.connector.Connect(ctx, endpoint.EndpointURL, endpoint.Headers)
	if err != nil {
		return nil, n.fail(span, connectionFailure(err))
	}
	defer session.Close()

	b := &batch{
		node:       n,
		host:       host,
		session:    session,
		endpoint:   endpoint,
		logger:     logger,
		validators: make(map[string]*schema.Validator),
	}

	out := make([]Item, 0, len(items))
	for i := range items {
		itemLogger := log.WithItem(logger, i)

		item, err := b.process(ctx, i)
		if err == nil {
			n.metrics.RecordItem(ctx, tracing.OutcomeSuccess)
			out = append(out, item)
			continue
		}

		n.metrics.RecordItem(ctx, tracing.OutcomeError)
		itemErr := &ItemError{ItemIndex: i, Message: foresterrors.UserMessageOf(err), Cause: err}
		if !host.ContinueOnFail() {
			itemLogger.Error("item failed", log.Error(err))
			return nil, n.fail(span, itemErr)
		}

		itemLogger.Warn("item failed, continuing", log.Error(err))
		out = append(out, Item{
			JSON:       map[string]any{"error": itemErr.Message},
			PairedItem: i,
		})
	}

	return out, nil
}

func (n *Node) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// batch carries the state shared by the items of one Execute call.
type batch struct {
	node       *Node
	host       ExecuteHost
	session    mcp.Session
	endpoint   credentials.ResolvedEndpoint
	logger     *slog.Logger
	validators map[string]*schema.Validator
}

func (b *batch) process(ctx context.Context, i int) (Item, error) {
	toolParam, err := b.host.NodeParameter(ParamTool, i)
	if err != nil {
		return Item{}, err
	}
	tool := ToolName(toolParam)
	if tool == "" {
		return Item{}, &foresterrors.ValidationError{
			Field:      ParamTool,
			Message:    "no tool selected",
			Suggestion: "Select a tool from the list",
		}
	}
	if err := b.node.policy.CheckTool(tool); err != nil {
		return Item{}, err
	}

	optsParam, _ := b.host.NodeParameter(ParamOptions, i)
	opts := ParseOptions(optsParam, b.node.defaultTimeout)

	args, err := b.arguments(i)
	if err != nil {
		return Item{}, err
	}
	args = params.CleanObject(args)

	if opts.ValidateInput {
		validator, err := b.validator(ctx, tool)
		if err != nil {
			return Item{}, err
		}
		if err := validator.Validate(args); err != nil {
			return Item{}, err
		}
	}

	if b.node.limiter != nil {
		if err := b.node.limiter.Wait(ctx); err != nil {
			return Item{}, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := b.session.CallTool(callCtx, mcp.ToolCallRequest{Name: tool, Arguments: args})
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Item{}, &foresterrors.TimeoutError{
				Operation: "tool call " + tool,
				Duration:  opts.Timeout,
				Cause:     err,
			}
		}
		return Item{}, err
	}
	if resp.IsError {
		return Item{}, &foresterrors.ToolError{Tool: tool, Message: resp.ErrorText()}
	}

	return buildOutput(ctx, b.host, resp, opts.ConvertToBinary, i)
}

func (b *batch) arguments(i int) (map[string]any, error) {
	modeParam, err := b.host.NodeParameter(ParamInputMode, i)
	if err != nil {
		return nil, err
	}

	if params.ParseInputMode(modeParam) == params.InputModeJSON {
		raw, err := b.host.NodeParameter(ParamJSONParameters, i)
		if err != nil {
			return nil, err
		}
		return params.FromJSON(raw)
	}

	raw, err := b.host.NodeParameter(ParamParameters, i)
	if err != nil {
		return nil, err
	}
	return params.FromResourceMapper(raw)
}

// validator returns the cached validator for tool, looking the tool up on a
// dedicated session the first time. A schema that does not compile is
// logged and disables validation for that tool.
func (b *batch) validator(ctx context.Context, tool string) (*schema.Validator, error) {
	if v, ok := b.validators[tool]; ok {
		return v, nil
	}

	desc, err := b.node.lookupTool(ctx, b.endpoint, tool)
	if err != nil {
		return nil, err
	}

	v, err := schema.CompileValidator(desc.Name, desc.InputSchema)
	if err != nil {
		b.logger.Warn("skipping input validation", slog.String(log.ToolKey, tool), log.Error(err))
		v = nil
	}
	b.validators[tool] = v
	return v, nil
}

// lookupTool finds a tool on a session opened for that purpose only.
func (n *Node) lookupTool(ctx context.Context, endpoint credentials.ResolvedEndpoint, tool string) (*mcp.ToolDescriptor, error) {
	session, err := n.connector.Connect(ctx, endpoint.EndpointURL, endpoint.Headers)
	if err != nil {
		return nil, connectionFailure(err)
	}
	defer session.Close()

	return mcp.FindTool(ctx, session, tool, n.listOpts)
}
