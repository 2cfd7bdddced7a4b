package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/util"
)

// ErrDisallowed is returned when robots.txt forbids the fetch
var ErrDisallowed = errors.New("disallowed by robots.txt")

const (
	maxFetchAttempts = 3
	maxRedirects     = 3
)

// fetchSleepFunc waits out a retry backoff unless ctx ends first.
// Swapped out in tests.
var fetchSleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Waiter blocks until a request under key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// keyRateSetter is implemented by limiters that accept per-key rates
type keyRateSetter interface {
	SetKeyRate(key string, requestsPerSecond float64, burst int)
}

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Fetcher downloads documents over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
	limiter    Waiter
	delays     sync.Map // host -> crawl delay already applied to limiter
	log        logrus.FieldLogger
}

// NewFetcher builds a fetcher from HTTP settings. limiter may be nil.
func NewFetcher(cfg model.HTTPConfig, limiter Waiter) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
		log:        logrus.StandardLogger(),
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(cfg.UserAgent, client)
	}
	return f
}

// Fetch downloads rawURL and returns it as a document.
// HTML is reduced to visible text, plain text is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (model.Document, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.Document{}, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return model.Document{}, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return model.Document{}, err
		}
		if !allowed {
			return model.Document{}, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		f.applyCrawlDelay(parsed.Host, delay)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, parsed.Host); err != nil {
			return model.Document{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := f.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return model.Document{}, err
	}
	return f.toDocument(resp)
}

type fetched struct {
	body        []byte
	contentType string
	finalURL    *url.URL
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) (*fetched, error) {
	var lastErr error
	backoff := time.Second

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		result, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts || ctx.Err() != nil {
			break
		}

		f.log.WithFields(logrus.Fields{
			"url":     rawURL,
			"attempt": attempt,
			"backoff": backoff,
		}).WithError(err).Warn("fetch failed, retrying")
		if err := fetchSleepFunc(ctx, backoff); err != nil {
			return nil, fmt.Errorf("%w (last attempt: %v)", err, lastErr)
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		f.log.WithFields(logrus.Fields{"url": rawURL, "max_bytes": f.maxBytes}).Warn("response truncated")
		body = trimPartialRune(body[:f.maxBytes])
	}

	return &fetched{
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
		finalURL:    resp.Request.URL,
	}, nil
}

// trimPartialRune drops a multi-byte UTF-8 sequence cut off at the end of b
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}

func (f *Fetcher) toDocument(r *fetched) (model.Document, error) {
	mediaType, _, err := mime.ParseMediaType(r.contentType)
	if err != nil || mediaType == "" {
		mediaType = http.DetectContentType(r.body)
		mediaType, _, _ = mime.ParseMediaType(mediaType)
	}

	doc := model.Document{Title: titleFromURL(r.finalURL)}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		text, title, err := HTMLText(bytes.NewReader(r.body))
		if err != nil {
			return model.Document{}, fmt.Errorf("parse html: %w", err)
		}
		if title != "" {
			doc.Title = title
		}
		doc.Type = "html"
		doc.Content = text
	case strings.HasPrefix(mediaType, "text/"):
		doc.Type = strings.TrimPrefix(mediaType, "text/")
		doc.Content = strings.ToValidUTF8(string(r.body), "\uFFFD")
	default:
		return model.Document{}, fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
	}
	return doc, nil
}

func (f *Fetcher) applyCrawlDelay(host string, delay time.Duration) {
	if delay <= 0 || f.limiter == nil {
		return
	}
	setter, ok := f.limiter.(keyRateSetter)
	if !ok {
		return
	}
	if _, seen := f.delays.LoadOrStore(host, delay); seen {
		return
	}
	setter.SetKeyRate(host, 1/delay.Seconds(), 1)
	f.log.WithFields(logrus.Fields{"host": host, "crawl_delay": delay}).Debug("applying robots.txt crawl delay")
}

// isRetryableFetchError reports transport failures, 5xx and 429 as transient
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	return strings.HasPrefix(err.Error(), "fetch: ")
}

// titleFromURL derives a readable title from the last path segment
func titleFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	segments := strings.Split(path, "/")
	if title := titleFromName(segments[len(segments)-1]); title != "" {
		return title
	}
	return u.Host
}
