package scraper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// URLCache remembers article URLs scraped within the last 24 hours so
// repeated runs skip refetching them. It persists as a JSON side file next
// to the database; losing it only costs redundant fetches.
type URLCache struct {
	path   string
	maxAge time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	urls map[string]time.Time
}

// NewURLCache loads the cache from path, pruning entries older than 24h
func NewURLCache(path string, log zerolog.Logger) *URLCache {
	c := &URLCache{
		path:   path,
		maxAge: 24 * time.Hour,
		log:    log.With().Str("component", "urlcache").Logger(),
		now:    time.Now,
		urls:   make(map[string]time.Time),
	}
	c.load()
	return c
}

// Seen reports whether url was scraped within the retention window
func (c *URLCache) Seen(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.urls[url]
	if !ok {
		return false
	}
	if c.now().Sub(t) > c.maxAge {
		delete(c.urls, url)
		return false
	}
	return true
}

// Mark records url as scraped now
func (c *URLCache) Mark(url string) {
	c.mu.Lock()
	c.urls[url] = c.now()
	c.mu.Unlock()
}

// Len returns the number of live entries
func (c *URLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}

// Save prunes stale entries and writes the cache back to disk
func (c *URLCache) Save() error {
	c.mu.Lock()
	cutoff := c.now().Add(-c.maxAge)
	snapshot := make(map[string]time.Time, len(c.urls))
	for url, t := range c.urls {
		if t.After(cutoff) {
			snapshot[url] = t
		}
	}
	c.urls = snapshot
	c.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(c.path, data, 0o644)
}

func (c *URLCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", c.path).Msg("Failed to read URL cache")
		}
		return
	}

	var stored map[string]time.Time
	if err := json.Unmarshal(data, &stored); err != nil {
		c.log.Warn().Err(err).Str("path", c.path).Msg("Corrupt URL cache, starting fresh")
		return
	}

	cutoff := c.now().Add(-c.maxAge)
	for url, t := range stored {
		if t.After(cutoff) {
			c.urls[url] = t
		}
	}

	c.log.Debug().Int("urls", len(c.urls)).Msg("URL cache loaded")
}
