package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/hrintel/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "hrintel-test/1.0",
		MaxBodyBytes: 1 << 20,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetch_HTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hrintel-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>Pressemitteilung</title></head><body><p>Text</p></body></html>`)
	}))
	defer server.Close()

	doc, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), server.URL+"/news/razzia-kassel.html")
	require.NoError(t, err)
	assert.Equal(t, "Pressemitteilung", doc.Title)
	assert.Equal(t, "html", doc.Type)
	assert.Equal(t, "Text", doc.Content)
}

func TestFetch_PlainTextTitleFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "| 101 | Ereignis-Datensatznummer | E-1 |")
	}))
	defer server.Close()

	doc, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), server.URL+"/faelle/ereignis_42.txt")
	require.NoError(t, err)
	assert.Equal(t, "ereignis 42", doc.Title)
	assert.Equal(t, "plain", doc.Type)
	assert.Equal(t, "| 101 | Ereignis-Datensatznummer | E-1 |", doc.Content)
}

func TestFetch_UnsupportedContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), server.URL)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestFetch_RejectsScheme(t *testing.T) {
	_, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestFetch_TruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 10
	doc, err := NewFetcher(cfg, nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, doc.Content, 10)
}

func TestFetch_RedirectCap(t *testing.T) {
	noSleep(t)
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), server.URL+"/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	doc, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "OK", doc.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), server.URL)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), attempts.Load(), "404 is not retried")
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig(), nil).Fetch(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(maxFetchAttempts), attempts.Load())
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{&StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{&StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{&StatusError{Code: 429, Status: "429 Too Many Requests"}, true},
		{&StatusError{Code: 404, Status: "404 Not Found"}, false},
		{&StatusError{Code: 403, Status: "403 Forbidden"}, false},
		{errors.New("fetch: connection refused"), true},
		{errors.New("create request: invalid URL"), false},
		{fmt.Errorf("fetch: %w", context.Canceled), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := isRetryableFetchError(tt.err); got != tt.retryable {
			t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
	}
}

type recordingLimiter struct {
	mu    sync.Mutex
	keys  []string
	rates map[string]float64
}

func (l *recordingLimiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return nil
}

func (l *recordingLimiter) SetKeyRate(key string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rates == nil {
		l.rates = map[string]float64{}
	}
	l.rates[key] = rps
}

func TestFetch_RobotsDisallow(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: hrintel-test\nDisallow: /intern/\nCrawl-delay: 2\n")
			return
		}
		pageHits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	limiter := &recordingLimiter{}
	f := NewFetcher(cfg, limiter)

	_, err := f.Fetch(context.Background(), server.URL+"/intern/akte.txt")
	assert.True(t, errors.Is(err, ErrDisallowed))
	assert.Equal(t, int32(0), pageHits.Load())

	_, err = f.Fetch(context.Background(), server.URL+"/oeffentlich.txt")
	require.NoError(t, err)
	assert.Equal(t, int32(1), pageHits.Load())

	host := strings.TrimPrefix(server.URL, "http://")
	assert.Equal(t, []string{host}, limiter.keys)
	assert.InDelta(t, 0.5, limiter.rates[host], 1e-9)
}

func TestRobotsChecker_ServerErrorDisallows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	allowed, _, err := NewRobotsChecker("hrintel", http.DefaultClient).CanFetch(context.Background(), server.URL+"/x")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRobotsChecker_MissingAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	allowed, delay, err := NewRobotsChecker("hrintel", http.DefaultClient).CanFetch(context.Background(), server.URL+"/x")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, delay)
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "hrintel", productToken("hrintel/0.1 (+https://github.com/ppiankov/hrintel)"))
	assert.Equal(t, "", productToken(""))
}

func TestFetchWithRetry_CancelDuringBackoff(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := NewFetcher(testHTTPConfig(), nil).Fetch(ctx, server.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "backoff must end with ctx")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetch_TruncatesOnRuneBoundary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, "Täter")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 2 // "T" plus the first byte of "ä"
	doc, err := NewFetcher(cfg, nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "T", doc.Content)
}

func TestTrimPartialRune(t *testing.T) {
	assert.Equal(t, []byte("ab"), trimPartialRune([]byte("ab")))
	assert.Equal(t, []byte("aä"), trimPartialRune([]byte("aä")))
	assert.Equal(t, []byte("a"), trimPartialRune([]byte("aä")[:2]))
	assert.Equal(t, []byte("x"), trimPartialRune([]byte("x€")[:3]))
	assert.Empty(t, trimPartialRune([]byte("ж")[:1]))
}
