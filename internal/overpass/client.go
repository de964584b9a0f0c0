package overpass

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// rateLimitBackoff is how long to wait before retrying a 429 response.
const rateLimitBackoff = 5 * time.Second

// Client posts raw Overpass QL queries and returns the raw response body.
// Responses are kept as bytes so requests can persist them verbatim and
// rebuild their feature index later.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	sleep    func(time.Duration)
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithSleep replaces the backoff sleep, used by tests to avoid real waits.
func WithSleep(fn func(time.Duration)) ClientOption {
	return func(c *Client) { c.sleep = fn }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRateLimit overrides the requests-per-second etiquette limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// NewClient creates a client for the given endpoint ("" uses the public
// interpreter). The connection and overall request each get a 5 second
// timeout, and requests are spaced by a one-per-second limiter as API
// etiquette.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		sleep:   time.Sleep,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query posts the query body and returns the raw response bytes. A 429
// response sleeps five seconds and retries; any other non-200 status is a
// terminal transport error.
func (c *Client) Query(ctx context.Context, query string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.post(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("overpass request failed: %w", err)
		}

		switch status {
		case http.StatusOK:
			return body, nil
		case http.StatusTooManyRequests:
			c.logger.Warn("overpass rate limited, backing off",
				"attempt", attempt,
				"backoff", rateLimitBackoff,
			)
			c.sleep(rateLimitBackoff)
		default:
			return nil, fmt.Errorf("overpass returned status %d", status)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (c *Client) post(ctx context.Context, query string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
