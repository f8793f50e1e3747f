package scraper

import (
	"regexp"
	"strings"
	"time"
)

// SourceAdapter describes one news source. Adapters are data, not code:
// adding a source means adding an entry to DefaultSources.
type SourceAdapter struct {
	Name        string
	ListingURLs []string
	// URLPatterns qualify a link as an article: plain substrings matched
	// case-insensitively against the href.
	URLPatterns []string
	// URLRegexes qualify links whose shape carries no stable substring
	// (e.g. date- or id-based slugs).
	URLRegexes []*regexp.Regexp
	Spacing    time.Duration
}

// MatchesURL reports whether href matches any of the adapter's patterns
func (s SourceAdapter) MatchesURL(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range s.URLPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, re := range s.URLRegexes {
		if re.MatchString(href) {
			return true
		}
	}
	return false
}

// DefaultSources returns the Moroccan financial media source table
func DefaultSources() []SourceAdapter {
	return []SourceAdapter{
		{
			Name:        "medias24",
			ListingURLs: []string{"https://www.medias24.com/economie/"},
			URLPatterns: []string{"/economie/", "/article/"},
			URLRegexes:  []*regexp.Regexp{regexp.MustCompile(`/\d{4}/\d{2}/\d{2}/`)},
			Spacing:     2 * time.Second,
		},
		{
			Name:        "challenge",
			ListingURLs: []string{"https://www.challenge.ma/category/finance"},
			URLPatterns: []string{"/bourse/", "/actualite-finance-maroc/", "/finance/"},
			URLRegexes:  []*regexp.Regexp{regexp.MustCompile(`/\d{4}/\d{2}/\d{2}/`)},
			Spacing:     2 * time.Second,
		},
		{
			Name:        "lavieeco",
			ListingURLs: []string{"https://www.lavieeco.com/economie/"},
			URLPatterns: []string{"/economie/", "/affaires/", "/article/"},
			Spacing:     2 * time.Second,
		},
		{
			Name:        "leconomiste",
			ListingURLs: []string{"https://www.leconomiste.com/economie"},
			URLPatterns: []string{"/article/", "/economie/", "/actus/"},
			URLRegexes:  []*regexp.Regexp{regexp.MustCompile(`/\d{4}-\d{2}-\d{2}/`)},
			Spacing:     2 * time.Second,
		},
		{
			Name:        "boursenews",
			ListingURLs: []string{"https://www.boursenews.ma/"},
			URLPatterns: []string{"/article/", "/news/", "/actualite/", "/marches/"},
			Spacing:     2 * time.Second,
		},
		{
			Name:        "hespress",
			ListingURLs: []string{"https://fr.hespress.com/economie"},
			URLPatterns: []string{"/economie/", "/article/", "/actualite/"},
			URLRegexes:  []*regexp.Regexp{regexp.MustCompile(`/\d{6}-`)},
			Spacing:     2 * time.Second,
		},
	}
}
