package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ppiankov/commentradar/internal/cache"
	"github.com/ppiankov/commentradar/internal/model"
	"github.com/ppiankov/commentradar/internal/worker"
)

func newTestFetcher(t *testing.T, mutate func(*Options)) *Fetcher {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts := Options{
		HTTP: model.HTTPConfig{
			Timeout:      5 * time.Second,
			UserAgent:    "test-agent",
			MaxBodyBytes: 1 << 20,
		},
		Retry: model.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
		Logger: logger,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewFetcher(opts)
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	page, err := newTestFetcher(t, nil).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(page.Body) != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", page.Body)
	}
	if page.ContentType != "text/html" {
		t.Errorf("Unexpected content type: %s", page.ContentType)
	}
}

func TestGet_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	page, err := newTestFetcher(t, nil).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(page.Body) != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", page.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestGet_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(t, nil).Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("Expected StatusError 404, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 is not retryable, expected 1 attempt, got %d", attempts.Load())
	}
}

func TestGet_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestFetcher(t, nil).Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestGet_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	if _, err := newTestFetcher(t, nil).Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestGet_UsesCache(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = fmt.Fprint(w, "cached body")
	}))
	defer server.Close()

	f := newTestFetcher(t, func(o *Options) {
		o.Cache = cache.NewMemoryCache(time.Minute, time.Minute)
		o.TTL = time.Minute
	})

	for i := 0; i < 3; i++ {
		page, err := f.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatal(err)
		}
		if string(page.Body) != "cached body" {
			t.Errorf("unexpected body %q", page.Body)
		}
		if i > 0 && !page.FromCache {
			t.Error("expected cached page on repeated fetch")
		}
	}
	if attempts.Load() != 1 {
		t.Errorf("expected a single request, got %d", attempts.Load())
	}
}

func TestGet_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	f := newTestFetcher(t, func(o *Options) { o.HTTP.MaxBodyBytes = 4 })
	page, err := f.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(page.Body) != "0123" {
		t.Errorf("expected body truncated to 4 bytes, got %q", page.Body)
	}
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected JSON accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"hits":[{"title":"a"}]}`)
	}))
	defer server.Close()

	var out struct {
		Hits []struct {
			Title string `json:"title"`
		} `json:"hits"`
	}
	if err := newTestFetcher(t, nil).GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Hits) != 1 || out.Hits[0].Title != "a" {
		t.Errorf("unexpected decode result %+v", out)
	}
}

func TestGetJSON_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html>not json</html>")
	}))
	defer server.Close()

	var out map[string]any
	if err := newTestFetcher(t, nil).GetJSON(context.Background(), server.URL, &out); err == nil {
		t.Error("expected decode error")
	}
}

func TestGetPage_RespectsRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		default:
			_, _ = fmt.Fprint(w, "<html>page</html>")
		}
	}))
	defer server.Close()

	f := newTestFetcher(t, func(o *Options) { o.HTTP.RespectRobots = true })
	ctx := context.Background()

	if _, err := f.GetPage(ctx, server.URL+"/blog/post"); err != nil {
		t.Errorf("expected allowed page, got %v", err)
	}
	if _, err := f.GetPage(ctx, server.URL+"/private/post"); !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed, got %v", err)
	}
}

func TestGetPage_CrawlDelayTightensLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nCrawl-delay: 30\n")
			return
		}
		_, _ = fmt.Fprint(w, "<html>page</html>")
	}))
	defer server.Close()

	limiter := worker.NewLimiter(100, 10)
	f := newTestFetcher(t, func(o *Options) {
		o.HTTP.RespectRobots = true
		o.Limiter = limiter
	})

	if _, err := f.GetPage(context.Background(), server.URL+"/a"); err != nil {
		t.Fatal(err)
	}
	if limiter.Allow(server.URL + "/b") {
		t.Error("expected the crawl delay to throttle the next request")
	}
}

func TestPause(t *testing.T) {
	f := newTestFetcher(t, nil)

	start := time.Now()
	if err := f.Pause(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("expected Pause to wait")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Pause(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"502 wrapped", fmt.Errorf("reddit: %w", &StatusError{Code: 502}), true},
		{"429", &StatusError{Code: 429, Status: "429 Too Many Requests"}, true},
		{"404", &StatusError{Code: 404, Status: "404 Not Found"}, false},
		{"403", &StatusError{Code: 403, Status: "403 Forbidden"}, false},
		{"401", &StatusError{Code: 401, Status: "401 Unauthorized"}, false},
		{"connection refused", errors.New("fetch: connection refused"), true},
		{"connection reset", errors.New("fetch: connection reset by peer"), true},
		{"bad request", errors.New("create request: invalid URL"), false},
		{"body read", errors.New("read body: unexpected EOF"), false},
		{"cancelled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"caller deadline", context.DeadlineExceeded, false},
		{"client timeout", fmt.Errorf("fetch: %w", &url.Error{Op: "Get", URL: "https://a.example", Err: timeoutError{}}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

// timeoutError mimics the error http.Client returns when Timeout is exceeded.
type timeoutError struct{}

func (timeoutError) Error() string { return "Client.Timeout exceeded while awaiting headers" }

func (timeoutError) Timeout() bool { return true }

func (timeoutError) Temporary() bool { return true }

func (timeoutError) Unwrap() error { return context.DeadlineExceeded }

func TestGet_RetriesClientTimeout(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	f := newTestFetcher(t, func(o *Options) { o.HTTP.Timeout = 50 * time.Millisecond })
	page, err := f.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected the retry to succeed, got %v", err)
	}
	if string(page.Body) != "ok" {
		t.Errorf("unexpected body %q", page.Body)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestGet_CallerDeadlineNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher(t, nil).Get(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestIsRetryableFetchError_Nil(t *testing.T) {
	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}
