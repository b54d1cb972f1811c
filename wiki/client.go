package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/olgasafonova/wiki-bridge-mcp-server/metrics"
)

// Client is the bridge's single outbound HTTP adapter. One instance is
// constructed at startup and shared by every concurrent request; it holds no
// per-call mutable state, so no locking is needed.
type Client struct {
	config     *Config
	guard      *EgressGuard
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates the shared MediaWiki API client
func NewClient(config *Config, logger *slog.Logger) *Client {
	// Configure HTTP transport for connection reuse across wikis
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		guard:  NewEgressGuard(config.AllowedSuffixes),
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		logger: logger,
		tracer: otel.Tracer("wiki-bridge-mcp-server/wiki"),
	}
}

// Guard exposes the egress guard for liveness checks and tests
func (c *Client) Guard() *EgressGuard {
	return c.guard
}

// apiGet performs a GET against <base>/api.php with the given parameters.
// The egress guard runs first: a disallowed host returns ForbiddenError with
// zero network I/O. All other failures come back as typed errors, never as
// panics or raw transport errors.
func (c *Client) apiGet(ctx context.Context, baseURL string, params url.Values) (map[string]interface{}, error) {
	if err := c.guard.Check(baseURL); err != nil {
		metrics.EgressBlocked.Inc()
		c.logger.Warn("Egress blocked", "url", baseURL)
		return nil, err
	}

	params.Set("format", "json")
	endpoint := strings.TrimRight(baseURL, "/") + "/api.php?" + params.Encode()
	action := params.Get("action")
	host := hostOf(baseURL)

	ctx, span := c.tracer.Start(ctx, "wiki.api_get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("wiki.host", host),
			attribute.String("wiki.action", action),
		))
	defer span.End()

	start := time.Now()
	result, err := c.doWithRetry(ctx, endpoint)
	metrics.RecordUpstream(host, action, time.Since(start).Seconds(), err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// doWithRetry issues the request, retrying transient failures (connection
// errors, 429, 5xx) with quadratic backoff. A 429 carrying a Retry-After
// header is honored instead of the computed backoff. Timeouts are not
// retried: the per-call timeout is the caller's latency budget for one probe.
func (c *Client) doWithRetry(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	var lastErr error
	var retryAfter time.Duration
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			if retryAfter > 0 {
				backoff = retryAfter
				retryAfter = 0
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, classifyTransport(endpoint, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, &TransportError{Code: CodeConnection, URL: endpoint, Err: err}
		}
		req.Header.Set("User-Agent", c.config.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			terr := classifyTransport(endpoint, err)
			// Neither a timeout nor a gone caller improves on retry
			if terr.Code == CodeTimeout || terr.Code == CodeCanceled {
				return nil, terr
			}
			lastErr = terr
			c.logger.Warn("API request failed, retrying",
				"url", endpoint,
				"attempt", attempt+1,
				"max_retries", c.config.MaxRetries,
				"error", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = &TransportError{Code: CodeConnection, URL: endpoint, Err: err}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &TransportError{Code: CodeHTTPStatus, URL: endpoint, Status: resp.StatusCode}
			// 4xx other than 429 will not improve on retry
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, statusErr
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			}
			lastErr = statusErr
			c.logger.Warn("API returned non-OK status",
				"url", endpoint,
				"status", resp.StatusCode,
				"attempt", attempt+1)
			continue
		}

		var result map[string]interface{}
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, &ShapeError{URL: endpoint, Detail: "response is not JSON"}
		}

		if errObj := getMap(result["error"]); errObj != nil {
			code := getString(errObj["code"])
			info := getString(errObj["info"])
			return nil, &ShapeError{URL: endpoint, Detail: fmt.Sprintf("API error [%s]: %s", code, info)}
		}

		return result, nil
	}

	return nil, lastErr
}

// parseRetryAfter reads a Retry-After value as delay seconds or an HTTP
// date. The wait is capped so a hostile upstream cannot stall the bridge.
func parseRetryAfter(v string) time.Duration {
	const maxWait = 30 * time.Second
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return min(time.Duration(secs)*time.Second, maxWait)
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d <= 0 {
			return 0
		}
		return min(d, maxWait)
	}
	return 0
}

// classifyTransport maps a request error to the transport taxonomy. Caller
// cancellation is kept apart from timeouts and connection failures so
// resolution diagnostics stay honest when the caller disconnects mid-probe.
func classifyTransport(endpoint string, err error) *TransportError {
	code := CodeConnection
	if errors.Is(err, context.Canceled) {
		code = CodeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code = CodeTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		code = CodeTimeout
	}
	return &TransportError{Code: code, URL: endpoint, Err: err}
}
