// Package httpclient is the outbound HTTP client used by catalog tooling. It
// retries transient failures, guards a target with a circuit breaker and maps
// catalog error envelopes back into application errors.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns sensible defaults for HTTP client.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryWaitMin:    time.Second,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 100,
	}
}

// Client wraps http.Client with retry logic and pooled connections.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client with retry and connection pooling.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// Do executes req, retrying network errors and 5xx responses other than 501
// with exponential backoff. A request with a body is only retried when its
// body can be rewound through GetBody, which http.NewRequest sets for
// in-memory readers such as the multipart buffers built by the seeder.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	retries := c.config.MaxRetries
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		retries = 0
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rewind request body: %w", err)
				}
				req.Body = body
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if isRetryableError(err) && attempt < retries {
				continue
			}
			return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
		}

		if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented && attempt < retries {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			continue
		}
		return resp, nil
	}
}

// Get performs HTTP GET request with retry.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// Post performs HTTP POST request with retry.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

func (c *Client) backoff(attempt int) time.Duration {
	wait := c.config.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if wait > c.config.RetryWaitMax {
		wait = c.config.RetryWaitMax
	}
	return addJitter(wait)
}

// addJitter spreads d by up to 25% in either direction.
func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := int64(d) / 4
	if spread == 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(2*spread+1)-spread)
}

// isRetryableError reports whether err is a network failure worth retrying.
// Cancellation and deadline errors never are.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
