// Package scraper implements the polite multi-source scraping fabric:
// per-host rate limiting, UA rotation, retry with backoff, listing and
// article extraction, and the per-source adapter table.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrNotHTML is returned when an article fetch resolves to a non-HTML response
	ErrNotHTML = errors.New("response is not HTML")
	// ErrForbidden is returned on a 403 with no headless fallback configured
	ErrForbidden = errors.New("fetch forbidden")
)

// userAgents is the rotation pool. Not pinned per host.
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
}

// HeadlessFetcher is the optional fallback used when a host answers 403.
// Absent, 403 is terminal for that URL.
type HeadlessFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherConfig tunes the HTTP fetcher
type FetcherConfig struct {
	Timeout    time.Duration // per-request timeout
	Spacing    time.Duration // minimum per-host spacing
	MaxRetries int
	Headless   HeadlessFetcher // optional
}

// Fetcher performs polite GETs with per-host spacing, UA rotation and
// exponential backoff. Safe for concurrent use; the per-host limiters
// are process-global within one Fetcher.
type Fetcher struct {
	client     *http.Client
	log        zerolog.Logger
	spacing    time.Duration
	maxRetries int
	headless   HeadlessFetcher

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	spacings map[string]time.Duration
	uaIndex  int
}

// NewFetcher creates a fetcher
func NewFetcher(cfg FetcherConfig, log zerolog.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Spacing == 0 {
		cfg.Spacing = 2 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log:        log.With().Str("component", "fetcher").Logger(),
		spacing:    cfg.Spacing,
		maxRetries: cfg.MaxRetries,
		headless:   cfg.Headless,
		limiters:   make(map[string]*rate.Limiter),
		spacings:   make(map[string]time.Duration),
	}
}

// SetHostSpacing overrides the minimum spacing for one host. An existing
// limiter for that host is rebuilt with the new spacing on next use.
func (f *Fetcher) SetHostSpacing(host string, spacing time.Duration) {
	if spacing <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spacings[host] = spacing
	delete(f.limiters, host)
}

// Fetch GETs a URL and returns the body and the final URL after redirects.
// Non-HTML responses fail with ErrNotHTML; 403 without a headless fallback
// fails with ErrForbidden; transient failures are retried with exponential
// backoff up to the configured budget.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, string, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			f.log.Warn().
				Str("url", rawURL).
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Msg("Retrying fetch")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", "", ctx.Err()
			}
		}

		if err := f.limiter(host).Wait(ctx); err != nil {
			return "", "", err
		}

		body, finalURL, retryable, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, finalURL, nil
		}
		if !retryable {
			return "", "", err
		}
		lastErr = err
	}

	return "", "", fmt.Errorf("fetch %s failed after %d attempts: %w", rawURL, f.maxRetries, lastErr)
}

// fetchOnce performs a single request. The bool result reports whether the
// failure is retryable.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", false, err
	}

	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to body read
	case resp.StatusCode == http.StatusForbidden:
		if f.headless != nil {
			f.log.Warn().Str("url", rawURL).Msg("403 received, trying headless fallback")
			body, herr := f.headless.Fetch(ctx, rawURL)
			if herr != nil {
				return "", "", false, fmt.Errorf("%w: headless fallback failed: %v", ErrForbidden, herr)
			}
			return body, rawURL, false, nil
		}
		return "", "", false, fmt.Errorf("%w: %s", ErrForbidden, rawURL)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", "", true, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	default:
		return "", "", false, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return "", "", false, fmt.Errorf("%w: %s (%s)", ErrNotHTML, rawURL, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", "", true, err
	}

	return string(body), resp.Request.URL.String(), false, nil
}

// limiter returns the per-host limiter, creating it on first use
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		spacing := f.spacing
		if s, ok := f.spacings[host]; ok {
			spacing = s
		}
		l = rate.NewLimiter(rate.Every(spacing), 1)
		f.limiters[host] = l
	}
	return l
}

func (f *Fetcher) nextUserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ua := userAgents[f.uaIndex%len(userAgents)]
	f.uaIndex++
	return ua
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return u.Host, nil
}
