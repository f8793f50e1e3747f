package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher(t *testing.T, headless HeadlessFetcher) *Fetcher {
	t.Helper()
	return NewFetcher(FetcherConfig{
		Timeout:    5 * time.Second,
		Spacing:    time.Millisecond,
		MaxRetries: 3,
		Headless:   headless,
	}, zerolog.Nop())
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	body, finalURL, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "ok")
	assert.Contains(t, finalURL, srv.URL)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>recovered</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	body, _, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "recovered")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_ExhaustsRetryBudget(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_ForbiddenIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "403 must not be retried")
}

type stubHeadless struct {
	body string
	err  error
}

func (s *stubHeadless) Fetch(_ context.Context, _ string) (string, error) {
	return s.body, s.err
}

func TestFetch_ForbiddenUsesHeadlessFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(t, &stubHeadless{body: "<html>rendered</html>"})
	body, _, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "rendered")
}

func TestFetch_NotFoundIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotHTML)
}

func TestFetch_RotatesUserAgents(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	for i := 0; i < len(userAgents); i++ {
		_, _, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for _, ua := range agents {
		seen[ua] = true
	}
	assert.Len(t, seen, len(userAgents))
}

func TestSetHostSpacing(t *testing.T) {
	f := newTestFetcher(t, nil)

	t.Run("overrides the default for one host", func(t *testing.T) {
		f.SetHostSpacing("slow.example.com", 5*time.Second)
		assert.Equal(t, rate.Every(5*time.Second), f.limiter("slow.example.com").Limit())
		assert.Equal(t, rate.Every(time.Millisecond), f.limiter("other.example.com").Limit())
	})

	t.Run("rebuilds an existing limiter", func(t *testing.T) {
		f.limiter("fast.example.com")
		f.SetHostSpacing("fast.example.com", 3*time.Second)
		assert.Equal(t, rate.Every(3*time.Second), f.limiter("fast.example.com").Limit())
	})

	t.Run("ignores non-positive spacing", func(t *testing.T) {
		f.SetHostSpacing("slow.example.com", 0)
		assert.Equal(t, rate.Every(5*time.Second), f.limiter("slow.example.com").Limit())
	})
}

func TestFetch_InvalidURL(t *testing.T) {
	f := newTestFetcher(t, nil)
	_, _, err := f.Fetch(context.Background(), "://missing-scheme")
	assert.Error(t, err)
}

func TestFetch_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, nil)
	_, _, err := f.Fetch(ctx, srv.URL)
	assert.Error(t, err)
}
