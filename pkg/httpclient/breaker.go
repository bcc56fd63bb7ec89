package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once that share of requests has failed.
	FailureRatio float64

	// MinRequests must be observed before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns sensible defaults for a circuit breaker.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var circuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ErrCircuitOpen is returned when the breaker rejects a request.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient wraps a Client with circuit breaker protection.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
	name    string
}

// NewCircuitBreakerClient wraps an existing HTTP client with a circuit breaker.
func NewCircuitBreakerClient(client *Client, cbCfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cbCfg.Name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cbCfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	circuitBreakerState.WithLabelValues(cbCfg.Name).Set(0)

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
		name:    cbCfg.Name,
	}
}

// Do executes req through the breaker. 5xx responses count as failures and
// are returned as errors carrying the response body.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%s: server error %d: %s", c.name, resp.StatusCode, body)
		}
		return resp, nil
	})
}

// Get performs an HTTP GET request through the circuit breaker.
func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
