// Package wialon is a client for the Wialon fleet-telemetry Remote API: token login,
// session lifecycle, and typed remote calls.
package wialon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://hst-api.wialon.com"
	defaultTimeout = 30 * time.Second
	ajaxPath       = "/wialon/ajax.html"
	instrumentName = "fleet-provisioning/wialon"
)

// Client issues Remote API calls. A Client is safe for concurrent use; the Sessions it opens are not.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	limiter  *rate.Limiter
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (and its timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithRateLimit caps outgoing calls at perSecond with the given burst. perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout sets the per-call HTTP timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient returns a client for the Remote API at baseURL (e.g. https://hst-api.wialon.com).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		tracer:     otel.Tracer(instrumentName),
	}
	for _, opt := range opts {
		opt(c)
	}
	meter := otel.Meter(instrumentName)
	// Instrument creation only fails on invalid names; the no-op fallbacks keep calls working.
	c.calls, _ = meter.Int64Counter("wialon.calls",
		metric.WithDescription("Remote API calls by service and outcome."))
	c.duration, _ = meter.Float64Histogram("wialon.call.duration",
		metric.WithDescription("Remote API call latency."), metric.WithUnit("s"))
	return c
}

// errorEnvelope matches the Remote API failure body: {"error": N, "reason": "..."}.
type errorEnvelope struct {
	Error  *int   `json:"error"`
	Reason string `json:"reason"`
}

// do performs one call. sid may be empty for token/login. out may be nil.
func (c *Client) do(ctx context.Context, sid, svc string, params, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, svc, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("wialon.service", svc)))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributes(attribute.String("service", svc), attribute.String("outcome", outcome))
		if c.calls != nil {
			c.calls.Add(ctx, 1, attrs)
		}
		if c.duration != nil {
			c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wialon: %s: rate limit: %w", svc, err)
		}
	}

	if params == nil {
		params = struct{}{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("wialon: %s: encode params: %w", svc, err)
	}
	form := url.Values{}
	form.Set("svc", svc)
	form.Set("params", string(rawParams))
	if sid != "" {
		form.Set("sid", sid)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+ajaxPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("wialon: %s: %w: %v", svc, ErrUnknownOutcome, err)
		}
		return fmt.Errorf("wialon: %s: %w", svc, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("wialon: %s: %w: %v", svc, ErrUnknownOutcome, err)
		}
		return fmt.Errorf("wialon: %s: read response: %w", svc, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &RemoteAPIError{Service: svc, Code: CodeRequestFailed, Message: fmt.Sprintf("status=%d body=%s", resp.StatusCode, string(body))}
	}
	if err := decodeError(svc, body); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RemoteAPIError{Service: svc, Code: CodeInvalidResult, Message: err.Error()}
	}
	return nil
}

// decodeError returns a RemoteAPIError when body is an error envelope with a non-zero code.
// Array responses and objects without a numeric "error" key are successes.
func decodeError(svc string, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil || *env.Error == 0 {
		return nil
	}
	return &RemoteAPIError{Service: svc, Code: *env.Error, Message: env.Reason}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
