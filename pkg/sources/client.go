package sources

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/internal/metrics"
	"github.com/go-faster/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxBodySize      = 10 << 20
	breakerFailures  = 5
	breakerOpenDelay = time.Minute
)

// Client is the HTTP client shared by every adapter. It identifies itself
// with a fixed User-Agent, spaces requests per host and fails fast while a
// host's circuit is open. It never retries.
type Client struct {
	http      *http.Client
	userAgent string
	interval  time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg *config.SourcesConfig) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout, Transport: tr},
		userAgent: cfg.UserAgent,
		interval:  cfg.RequestInterval,
		limiters:  make(map[string]*rate.Limiter),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// Get performs a GET and returns the body of a 2xx response. Every failure is
// a *FetchError.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	target := u.String()

	limiter, breaker := c.forHost(u.Host)
	if err := limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	body, err := breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, u.Host, target)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: target, Err: err}
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, host, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(host, "error").Inc()
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(host, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: target, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	return body, nil
}

func (c *Client) forHost(host string) (*rate.Limiter, *gobreaker.CircuitBreaker[[]byte]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limiters[host]
	if !ok {
		limit := rate.Inf
		if c.interval > 0 {
			limit = rate.Every(c.interval)
		}
		limiter = rate.NewLimiter(limit, 1)
		c.limiters[host] = limiter
	}

	breaker, ok := c.breakers[host]
	if !ok {
		breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    host,
			Timeout: breakerOpenDelay,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.DefaultLogger().Warn("upstream.circuit",
					zap.String("host", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		c.breakers[host] = breaker
	}
	return limiter, breaker
}
