// Package fetch is the shared HTTP transport of the source adapters:
// per-domain rate limiting, response caching, retry with backoff, robots.txt.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/cache"
	"github.com/ppiankov/commentradar/internal/model"
	"github.com/ppiankov/commentradar/internal/util"
	"github.com/ppiankov/commentradar/internal/worker"
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Page is a fetched response body
type Page struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Body        []byte
	FromCache   bool
}

// Options configures a Fetcher
type Options struct {
	HTTP    model.HTTPConfig
	Retry   model.RetryConfig
	Limiter *worker.Limiter // nil disables rate limiting
	Cache   cache.Cache     // nil disables caching
	TTL     time.Duration   // cache entry lifetime
	Client  *http.Client    // overrides the client built from HTTP
	Logger  logrus.FieldLogger
}

// Fetcher fetches pages and API responses for the source adapters
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	cache      cache.Cache
	ttl        time.Duration
	robots     *util.RobotsChecker
	executor   failsafe.Executor[*Page]
	log        logrus.FieldLogger
}

// NewFetcher creates a Fetcher from opts
func NewFetcher(opts Options) *Fetcher {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "fetch")

	client := opts.Client
	if client == nil {
		timeout := opts.HTTP.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = util.NewProxyFunc(opts.HTTP.HTTPProxy, opts.HTTP.HTTPSProxy, "")
		client = &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		}
	}

	maxBytes := opts.HTTP.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  opts.HTTP.UserAgent,
		maxBytes:   maxBytes,
		limiter:    opts.Limiter,
		cache:      opts.Cache,
		ttl:        opts.TTL,
		log:        log,
	}
	if opts.HTTP.RespectRobots {
		f.robots = util.NewRobotsChecker(client, opts.HTTP.UserAgent, time.Hour, log)
	}
	f.executor = failsafe.With[*Page](newRetryPolicy(opts.Retry))
	return f
}

func newRetryPolicy(cfg model.RetryConfig) retrypolicy.RetryPolicy[*Page] {
	base, max := cfg.BaseDelay, cfg.MaxDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max < base {
		max = base
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return retrypolicy.NewBuilder[*Page]().
		WithBackoff(base, max).
		WithMaxRetries(retries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *Page, err error) bool {
			return isRetryableFetchError(err)
		}).
		Build()
}

// Get fetches rawURL, consulting the cache first and retrying transient failures.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Page, error) {
	return f.GetWithHeaders(ctx, rawURL, nil)
}

// GetWithHeaders is Get with extra request headers
func (f *Fetcher) GetWithHeaders(ctx context.Context, rawURL string, headers map[string]string) (*Page, error) {
	key := cache.CacheKey(rawURL)
	if f.cache != nil {
		if body, ok := f.cache.Get(key); ok {
			f.log.WithField("url", rawURL).Debug("Cache hit")
			return &Page{URL: rawURL, StatusCode: http.StatusOK, Body: body, FromCache: true}, nil
		}
	}

	page, err := f.executor.WithContext(ctx).Get(func() (*Page, error) {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}
		page, err := f.fetch(ctx, rawURL, headers)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return page, err
	})
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(key, page.Body, f.ttl); err != nil {
			f.log.WithError(err).Warn("Failed to cache response")
		}
	}
	return page, nil
}

// GetJSON fetches rawURL and decodes the body into v
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	page, err := f.GetWithHeaders(ctx, rawURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(page.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// GetPage fetches an HTML page after checking robots.txt. A crawl delay
// found in robots.txt tightens the domain's rate limit.
func (f *Fetcher) GetPage(ctx context.Context, rawURL string) (*Page, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if f.limiter != nil && f.limiter.ApplyCrawlDelay(rawURL, delay) {
			f.log.WithFields(logrus.Fields{"url": rawURL, "crawl_delay": delay}).Debug("Applied robots.txt crawl delay")
		}
	}
	return f.Get(ctx, rawURL)
}

// Pause waits for d or until ctx is done. Adapters use it for per-page
// courtesy delays.
func (f *Fetcher) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, headers map[string]string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// isRetryableFetchError reports whether err is transient: 5xx, 429,
// client timeouts and dropped connections. Other 4xx and request errors are
// final. A done caller context surfaces as a bare context error and is final.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "fetch:") {
		return false
	}
	for _, s := range []string{"connection refused", "connection reset", "EOF", "timeout", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
