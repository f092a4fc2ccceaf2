// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package problem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/planexpert/services/planexpert/eval"
	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/telemetry"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

var clientTracer = otel.Tracer("planexpert.problem.client")

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the service root, e.g. "http://localhost:8600".
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// QPS limits the request rate. Zero or negative disables limiting.
	QPS float64 `yaml:"qps"`

	// Burst is the limiter's bucket size. Values below 1 are treated as 1.
	Burst int `yaml:"burst"`
}

// DefaultClientConfig returns a config for a local service.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: "http://localhost:8600",
		Timeout: 10 * time.Second,
		QPS:     200,
		Burst:   50,
	}
}

// Client talks to the problem service over HTTP.
//
// Description:
//
//	Client implements state.ProblemClient, so it can back the
//	evaluator's Remote accessor. Each method is one blocking request.
//	Service errors are decoded into the package sentinels, so
//	errors.Is(err, state.ErrFunctionNotFound) works across the wire.
//	Outgoing requests carry W3C trace context and an X-Request-ID.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ state.ProblemClient = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The configured
// timeout is not applied to it.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("problem client: base URL is required")
	}
	limit := rate.Inf
	if cfg.QPS > 0 {
		limit = rate.Limit(cfg.QPS)
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/v1/problem",
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "problem.client"))
	return c, nil
}

// do sends one request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (err error) {
	ctx, span := clientTracer.Start(ctx, "ProblemClient "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", path),
		),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", ErrServer, err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	telemetry.InjectContext(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrServer, method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		var er ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Code == "" {
			return fmt.Errorf("%w: %s %s: status %d", ErrServer, method, path, resp.StatusCode)
		}
		c.logger.Debug("problem service rejected request",
			slog.String("path", path),
			slog.String("code", er.Code),
			slog.String("error", er.Error))
		return fmt.Errorf("%w: %s", sentinelFor(er.Code), er.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// state.ProblemClient
// -----------------------------------------------------------------------------

// ExistPredicate reports whether p is in the problem state.
func (c *Client) ExistPredicate(ctx context.Context, p state.Predicate) (bool, error) {
	var resp ExistsResponse
	err := c.do(ctx, http.MethodPost, "/predicates/exists", p, &resp)
	return resp.Exists, err
}

// AddPredicate adds p.
func (c *Client) AddPredicate(ctx context.Context, p state.Predicate) error {
	return c.do(ctx, http.MethodPost, "/predicates", p, nil)
}

// RemovePredicate removes p if present.
func (c *Client) RemovePredicate(ctx context.Context, p state.Predicate) error {
	return c.do(ctx, http.MethodPost, "/predicates/remove", p, nil)
}

// GetFunction fetches a function by name and parameters.
func (c *Client) GetFunction(ctx context.Context, name string, params []string) (state.Function, error) {
	var f state.Function
	err := c.do(ctx, http.MethodPost, "/functions/get", FunctionQuery{Name: name, Params: params}, &f)
	return f, err
}

// UpdateFunction overwrites the value of an existing function.
func (c *Client) UpdateFunction(ctx context.Context, f state.Function) error {
	return c.do(ctx, http.MethodPut, "/functions", f, nil)
}

// GetInstances lists the registered instances.
func (c *Client) GetInstances(ctx context.Context) ([]state.Instance, error) {
	var out []state.Instance
	err := c.do(ctx, http.MethodGet, "/instances", nil, &out)
	return out, err
}

// -----------------------------------------------------------------------------
// Administration
// -----------------------------------------------------------------------------

// Health returns the service health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var h HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// AddInstance registers inst.
func (c *Client) AddInstance(ctx context.Context, inst state.Instance) error {
	return c.do(ctx, http.MethodPost, "/instances", inst, nil)
}

// RemoveInstance removes an instance and the state that mentions it.
func (c *Client) RemoveInstance(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/instances/"+name, nil, nil)
}

// Predicates lists every predicate.
func (c *Client) Predicates(ctx context.Context) ([]state.Predicate, error) {
	var out []state.Predicate
	err := c.do(ctx, http.MethodGet, "/predicates", nil, &out)
	return out, err
}

// AddFunction adds or replaces f.
func (c *Client) AddFunction(ctx context.Context, f state.Function) error {
	return c.do(ctx, http.MethodPost, "/functions", f, nil)
}

// Functions lists every function.
func (c *Client) Functions(ctx context.Context) ([]state.Function, error) {
	var out []state.Function
	err := c.do(ctx, http.MethodGet, "/functions", nil, &out)
	return out, err
}

// SetGoal replaces the goal.
func (c *Client) SetGoal(ctx context.Context, goal tree.Tree) error {
	return c.do(ctx, http.MethodPut, "/goal", goal, nil)
}

// Goal returns the goal, or an error wrapping ErrNoGoal.
func (c *Client) Goal(ctx context.Context) (tree.Tree, error) {
	var goal tree.Tree
	err := c.do(ctx, http.MethodGet, "/goal", nil, &goal)
	return goal, err
}

// ClearGoal removes the goal.
func (c *Client) ClearGoal(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/goal", nil, nil)
}

// GoalSatisfied checks the stored goal on the server.
func (c *Client) GoalSatisfied(ctx context.Context) (bool, error) {
	var resp GoalSatisfiedResponse
	err := c.do(ctx, http.MethodGet, "/goal/satisfied", nil, &resp)
	return resp.Satisfied, err
}

// State returns the instances and a snapshot of predicates and functions.
func (c *Client) State(ctx context.Context) (StateResponse, error) {
	var resp StateResponse
	err := c.do(ctx, http.MethodGet, "/state", nil, &resp)
	return resp, err
}

// Clear drops the whole problem.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/clear", nil, nil)
}

// Eval evaluates t at node on the server. op is eval.OpCheck, eval.OpApply
// or eval.OpValue.
func (c *Client) Eval(ctx context.Context, op string, t tree.Tree, node int) (EvalResponse, error) {
	switch op {
	case eval.OpCheck, eval.OpApply, eval.OpValue:
	default:
		return EvalResponse{}, fmt.Errorf("unsupported evaluation %q", op)
	}
	var resp EvalResponse
	err := c.do(ctx, http.MethodPost, "/"+op, EvalRequest{Tree: t, Node: node}, &resp)
	return resp, err
}

// Watch streams problem updates from GET /v1/problem/events.
//
// Description:
//
//	Opens a websocket and decodes each message into an Event. The
//	returned channel is closed when ctx is done or the connection ends.
//
// Outputs:
//
//	<-chan Event - Updates in publication order.
//	error - Wraps ErrServer when the handshake fails.
func (c *Client) Watch(ctx context.Context) (<-chan Event, error) {
	u, err := url.Parse(c.baseURL + "/events")
	if err != nil {
		return nil, fmt.Errorf("watch url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("X-Request-ID", uuid.NewString())
	telemetry.InjectContext(ctx, header)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: watch: status %d: %w", ErrServer, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: watch: %w", ErrServer, err)
	}

	out := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					c.logger.Debug("event stream ended", slog.String("error", err.Error()))
				}
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
