// Package client provides the explorer HTTP request executor with linear
// retry backoff and envelope decoding.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for explorer client operations.
var (
	explorerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_requests_total",
		Help: "Total explorer requests by action and outcome",
	}, []string{"action", "status"})

	explorerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_request_duration_seconds",
		Help:    "Explorer request duration in seconds by action, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"action"})

	explorerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_errors_total",
		Help: "Total failed explorer attempts by error class",
	}, []string{"class"})

	explorerAPIStatusFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_api_status_failures_total",
		Help: "Responses carrying status 0 by action",
	}, []string{"action"})
)

const (
	// DefaultBaseURL is the public Rise testnet explorer API.
	DefaultBaseURL = "https://explorer.testnet.riselabs.xyz/api"

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "RiseExplorerClient/1.0"
)

// Params holds the query or form fields of a single API call.
type Params map[string]string

// Clone returns a copy that can be extended without touching the receiver.
func (p Params) Clone() Params {
	out := make(Params, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Action returns "module.action" for logging and metric labels.
func (p Params) Action() string {
	if p["module"] == "" && p["action"] == "" {
		return "unknown"
	}
	return p["module"] + "." + p["action"]
}

func (p Params) encode() string {
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the single API endpoint all calls are sent to.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP exchange.
	Timeout time.Duration

	// MaxRetries is the total number of attempts per call, first one included.
	MaxRetries int

	// RetryDelay is the base of the linear backoff: attempt n waits RetryDelay*n.
	RetryDelay time.Duration
}

// DefaultConfig returns the configuration used by the command line tool.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		UserAgent:  DefaultUserAgent,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// Client executes explorer API calls.
type Client struct {
	httpClient *http.Client
	config     Config
	sleep      Sleeper
	logger     zerolog.Logger
}

// New creates a new explorer client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}
	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry_delay must not be negative (got %v)", cfg.RetryDelay)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		config: cfg,
		sleep:  contextSleep,
		logger: log.With().Str("component", "explorer-client").Logger(),
	}, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.config
}

// Get executes a GET call.
func (c *Client) Get(ctx context.Context, params Params) (*Envelope, error) {
	return c.Execute(ctx, params, http.MethodGet)
}

// Post executes a POST call with form-encoded params.
func (c *Client) Post(ctx context.Context, params Params) (*Envelope, error) {
	return c.Execute(ctx, params, http.MethodPost)
}

// Execute performs one logical API call. Transport failures are retried
// with linear backoff; after the last attempt a *TransportError is returned.
// A decoded envelope is returned whatever its status.
func (c *Client) Execute(ctx context.Context, params Params, method string) (*Envelope, error) {
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	action := params.Action()
	startTime := time.Now()
	defer func() {
		explorerRequestDuration.WithLabelValues(action).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("action", action).
		Str("method", method).
		Msg("Executing explorer request")

	var envelope *Envelope
	err := retryLinear(ctx, c.config.MaxRetries, c.config.RetryDelay, c.sleep, func(attempt int) error {
		env, err := c.doOnce(ctx, params, method)
		if err != nil {
			class := classifyError(err)
			explorerErrorsTotal.WithLabelValues(string(class)).Inc()
			explorerRequestsTotal.WithLabelValues(action, string(class)+"_error").Inc()
			c.logger.Warn().
				Err(err).
				Str("action", action).
				Int("attempt", attempt).
				Str("error_class", string(class)).
				Msgf("Attempt %d failed", attempt)
			return err
		}
		envelope = env
		return nil
	})
	if err != nil {
		return nil, err
	}

	if envelope.OK() {
		explorerRequestsTotal.WithLabelValues(action, "ok").Inc()
	} else {
		explorerRequestsTotal.WithLabelValues(action, "api_failure").Inc()
		explorerAPIStatusFailures.WithLabelValues(action).Inc()
		c.logger.Warn().
			Str("action", action).
			Str("status", envelope.Status).
			Str("message", envelope.Message).
			Msg("Explorer reported failure status")
	}

	return envelope, nil
}

// doOnce performs a single HTTP exchange.
func (c *Client) doOnce(ctx context.Context, params Params, method string) (*Envelope, error) {
	req, err := c.newRequest(ctx, params, method)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &env, nil
}

func (c *Client) newRequest(ctx context.Context, params Params, method string) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	encoded := params.encode()

	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.config.BaseURL, strings.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		target := c.config.BaseURL
		if encoded != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + encoded
		}
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// SetSleeper replaces the backoff sleep (for testing).
func (c *Client) SetSleeper(sleep Sleeper) {
	if sleep == nil {
		sleep = contextSleep
	}
	c.sleep = sleep
}
