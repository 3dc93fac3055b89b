// Package scraper fetches price source search pages and extracts a product price from them.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

// DefaultUserAgent looks like a desktop browser; many storefronts reject bare HTTP clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ClientOptions configures a Client
type ClientOptions struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64 // per source host
	Burst             int
	BreakerFailures   uint32 // consecutive failures before a source is short-circuited
	BreakerCooldown   time.Duration
	MaxBodyBytes      int64
}

// Client handles outbound page fetches. Each host gets its own rate limiter and each
// source its own circuit breaker, so one misbehaving source never slows the others.
// A fetch is a single attempt; there are no retries.
type Client struct {
	httpClient *http.Client
	opts       ClientOptions
	logger     *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a new page client
func NewClient(opts ClientOptions, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 3
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 2 * time.Minute
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		opts:     opts,
		logger:   logging.OrNop(logger).With(zap.String("component", "scraper_client")),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.opts.RequestsPerSecond), c.opts.Burst)
		c.limiters[host] = l
	}
	return l
}

func (c *Client) breaker(name string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[name]
	if !ok {
		failures := c.opts.BreakerFailures
		b = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     c.opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("source circuit state changed",
					zap.String("source", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		c.breakers[name] = b
	}
	return b
}

// BreakerState reports the circuit state of a source, for diagnostics
func (c *Client) BreakerState(source string) gobreaker.State {
	return c.breaker(source).State()
}

// Fetch GETs pageURL on behalf of source and returns the body decoded to UTF-8.
func (c *Client) Fetch(ctx context.Context, source, pageURL string) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", domain.ErrFetchFailed, pageURL)
	}

	if err := c.limiter(u.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	body, err := c.breaker(source).Execute(func() (interface{}, error) {
		return c.doRequest(ctx, pageURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCircuitOpen, source)
		}
		return nil, err
	}
	return body.([]byte), nil
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		// unknown charset, hand the bytes over unchanged
		return raw, nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return raw, nil
	}
	return decoded, nil
}
