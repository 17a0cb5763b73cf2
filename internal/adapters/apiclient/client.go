// Package apiclient talks to the remote events REST API.
//
// Every call carries the caller's context, a per-call timeout, the visitor's
// bearer token when logged in and an X-Request-ID. Non-2xx answers come back
// as *apierr.ResponseError; calls that get no answer wrap apierr.ErrTransport.
// Nothing is retried.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eventportal/internal/adapters/http/perf"
	"eventportal/internal/adapters/metrics"
	"eventportal/internal/domain/apierr"
	"eventportal/internal/domain/session"
)

// DefaultBaseURL is where the events API listens in development.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// DefaultTimeout bounds a single call.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

const tracerName = "eventportal/internal/adapters/apiclient"

// Config configures a Client. Zero values get defaults.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Collector  *perf.Collector
	Metrics    *metrics.Metrics
	// RequestID returns the inbound request ID to propagate, or "".
	RequestID func(ctx context.Context) string
	Now       func() time.Time
}

// Client is a thin JSON client for the events API.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	http      *http.Client
	collector *perf.Collector
	metrics   *metrics.Metrics
	requestID func(ctx context.Context) string
	now       func() time.Time
	tracer    trace.Tracer
}

// New validates cfg and returns a client.
// PRE: cfg.BaseURL is empty or an absolute http(s) URL
func New(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute http(s)", raw)
	}
	c := &Client{
		base:      base,
		timeout:   cfg.Timeout,
		http:      cfg.HTTPClient,
		collector: cfg.Collector,
		metrics:   cfg.Metrics,
		requestID: cfg.RequestID,
		now:       cfg.Now,
		tracer:    otel.Tracer(tracerName),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// call is one round trip: op names it for logs, traces and metrics.
type call struct {
	op     string
	method string
	path   string
	in     any
	out    any
	// raw receives the undecoded 2xx body when set.
	raw *[]byte
}

func (c *Client) do(ctx context.Context, cl call) (err error) {
	ctx, span := c.tracer.Start(ctx, "api."+cl.op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	status := 0
	defer func() {
		elapsed := c.now().Sub(start)
		c.collector.Since(perf.KindUpstream, "api."+cl.op, status, start)
		c.metrics.ObserveUpstream(cl.op, strconv.Itoa(status), elapsed)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		slog.Debug("upstream_call",
			"op", cl.op,
			"method", cl.method,
			"path", cl.path,
			"status", status,
			"duration_ms", float64(elapsed.Microseconds())/1000.0,
		)
	}()

	target := c.base.JoinPath(cl.path)
	span.SetAttributes(
		attribute.String("http.request.method", cl.method),
		attribute.String("url.full", target.String()),
	)

	var body io.Reader
	if cl.in != nil {
		data, mErr := json.Marshal(cl.in)
		if mErr != nil {
			return fmt.Errorf("%s: marshal request: %w", cl.op, mErr)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target.String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", c.requestIDFor(ctx))
	if token := session.TokenFromContext(ctx, c.now()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("upstream_unreachable", "op", cl.op, "error", err)
		return fmt.Errorf("%s: %w: %w", cl.op, apierr.ErrTransport, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w: %w", cl.op, apierr.ErrTransport, err)
	}

	if status < 200 || status > 299 {
		return apierr.Decode(status, http.StatusText(status), data)
	}
	if cl.raw != nil {
		*cl.raw = data
	}
	if cl.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return fmt.Errorf("%s: decode response: %w", cl.op, err)
	}
	return nil
}

func (c *Client) requestIDFor(ctx context.Context) string {
	if c.requestID != nil {
		if id := c.requestID(ctx); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// IsNotFound reports whether err is a 404 answer from the API.
func IsNotFound(err error) bool {
	return apierr.IsStatus(err, http.StatusNotFound)
}

// ErrNoToken is returned when a successful login answer carries no token.
// It counts as a transport failure: the answer was unusable.
var ErrNoToken = fmt.Errorf("%w: login response carried no token", apierr.ErrTransport)
