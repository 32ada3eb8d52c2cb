// Package adminapi is the typed client for the remote admin REST API that owns
// users and the audit log. Every call forwards the caller's Authorization
// header, is traced, and is guarded by a circuit breaker so an unreachable API
// fails fast instead of stalling the console.
package adminapi

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"console/pkg/platform/circuit"
	"console/pkg/requestcontext"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
	tracerName     = "console/internal/adminapi"
)

// Client calls the admin API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every call, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("admin api base url is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse admin api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("admin api base url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuit.New("adminapi"),
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do performs one API call. in is JSON-encoded when non-nil; out is decoded
// from a non-empty 2xx body when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	ctx, span := c.tracer.Start(ctx, "adminapi."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", method), attribute.String("adminapi.path", path)),
	)
	defer span.End()
	start := time.Now()

	if c.breaker != nil && !c.breaker.Allow() {
		c.observe(op, "circuit_open", start)
		span.SetStatus(codes.Error, "circuit open")
		return &APIError{Op: op, Message: "Admin API is temporarily unavailable", Retryable: true, Underlying: ErrCircuitOpen}
	}

	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// abandoned by the caller; says nothing about API health
			c.observe(op, "canceled", start)
			return fmt.Errorf("admin api %s: %w", op, ctxErr)
		}
		c.recordOutcome(ctx, false)
		c.observe(op, "transport_error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return newTransportError(op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newStatusError(op, resp.StatusCode, readErrorMessage(resp.Body))
		c.recordOutcome(ctx, resp.StatusCode < http.StatusInternalServerError)
		c.observe(op, "status_"+statusClass(resp.StatusCode), start)
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}

	c.recordOutcome(ctx, true)
	c.observe(op, "ok", start)
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		span.RecordError(err)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: "malformed admin api response", Underlying: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	// path is already escaped; usernames are escaped per segment
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := requestcontext.Authorization(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	return req, nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) recordOutcome(ctx context.Context, ok bool) {
	if c.breaker == nil {
		return
	}
	if ok {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "admin api circuit closed", "request_id", requestcontext.RequestID(ctx))
			c.setCircuitGauge(false)
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "admin api circuit opened", "request_id", requestcontext.RequestID(ctx))
		c.setCircuitGauge(true)
	}
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.observe(op, outcome, start)
	}
}

func (c *Client) setCircuitGauge(open bool) {
	if c.metrics != nil {
		c.metrics.setCircuit(open)
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
