package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// ErrContentTooShort marks an article whose body failed the length gate
var ErrContentTooShort = errors.New("article content too short")

// Article is one extracted news story before persistence
type Article struct {
	Title        string
	Summary      string
	URL          string
	Source       string
	PublishedAt  *time.Time
	Content      string
	ImageURL     string
	Author       string
	Category     string
	Tags         []string
	WordCount    int
	QualityScore float64
	ScrapedAt    time.Time
}

// financeKeywords validate article relevance for the quality score
var financeKeywords = []string{
	"bourse", "masi", "casablanca", "marché", "investissement", "finance",
	"économie", "titre", "action", "obligation", "trading", "volatilité",
	"croissance", "inflation", "taux", "devise", "export", "import",
	"bancaire", "crédit", "capital", "entreprise", "secteur", "performance",
	"dividende", "cours", "indice", "cotation", "société",
	"résultat", "bénéfice", "perte", "chiffre", "affaires", "commerce",
}

// excludePatterns reject non-article pages regardless of source
var excludePatterns = []string{
	"/tag/", "/category/", "/auteur/", "/author/",
	"/contact", "/about", "/mentions-legales",
	"/video/", "/podcast/", "/galerie/", "/photo/",
	"/newsletter", "/abonnement", "/login", "/register",
}

// contentSelectors are the common content-class containers tried after <article>
var contentSelectors = []string{
	".article-content", ".post-content", ".entry-content",
	".article-body", ".post-body", ".content",
	"[itemprop=\"articleBody\"]", ".article-text",
}

var containerClassRe = regexp.MustCompile(`(?i)article|post|news|item|card|entry`)

var frenchMonths = map[string]time.Month{
	"janvier": time.January, "février": time.February, "fevrier": time.February,
	"mars": time.March, "avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "août": time.August, "aout": time.August,
	"septembre": time.September, "octobre": time.October,
	"novembre": time.November, "décembre": time.December, "decembre": time.December,
}

var frenchDateRe = regexp.MustCompile(`(?i)(\d{1,2})(?:er)?\s+(janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre)\s+(\d{4})`)

// Extractor turns listing pages into article URLs and article pages into Articles
type Extractor struct {
	minContentLength int
	minListingYield  int
	log              zerolog.Logger
	now              func() time.Time
}

// NewExtractor creates an extractor with the given content length gate
func NewExtractor(minContentLength int, log zerolog.Logger) *Extractor {
	if minContentLength <= 0 {
		minContentLength = 300
	}
	return &Extractor{
		minContentLength: minContentLength,
		minListingYield:  5,
		log:              log.With().Str("component", "extractor").Logger(),
		now:              time.Now,
	}
}

// IsURLExcluded reports whether a URL matches the non-article exclusion set
func IsURLExcluded(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range excludePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ExtractListing returns deduplicated absolute article URLs from a listing
// page. Strategies run in order until the yield meets the minimum or all
// are exhausted.
func (e *Extractor) ExtractListing(html, baseURL string, src SourceAdapter) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.log.Warn().Err(err).Str("source", src.Name).Msg("Failed to parse listing HTML")
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string

	add := func(href string) {
		abs := resolveURL(base, href)
		if abs == "" || IsURLExcluded(abs) || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	}

	// 1. <article> tags with an inner link
	doc.Find("article").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
			add(href)
		}
	})

	// 2. Titled headings pointing at articles
	if len(links) < e.minListingYield {
		doc.Find("h1, h2, h3, h4, h5").Each(func(_ int, sel *goquery.Selection) {
			link := sel.Find("a[href]").First()
			href, ok := link.Attr("href")
			if !ok {
				return
			}
			if len(strings.TrimSpace(sel.Text())) >= 10 {
				add(href)
			}
		})
	}

	// 3. Any link matching the source's URL shape patterns
	if len(links) < e.minListingYield {
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if href == "" || !src.MatchesURL(href) {
				return
			}
			text := strings.TrimSpace(sel.Text())
			if isGenericLinkText(text) {
				// Pull a title from the surrounding container
				text = strings.TrimSpace(sel.Closest("div, li, article, section").Find("h1, h2, h3, h4, h5").First().Text())
			}
			if len(text) >= 8 || matchesAnyRegex(src.URLRegexes, href) {
				add(href)
			}
		})
	}

	// 4. Article-like containers with a titled inner link
	if len(links) < e.minListingYield {
		doc.Find("div, li, section").Each(func(_ int, sel *goquery.Selection) {
			class, _ := sel.Attr("class")
			if !containerClassRe.MatchString(class) {
				return
			}
			link := sel.Find("a[href]").First()
			href, ok := link.Attr("href")
			if !ok {
				return
			}
			title := strings.TrimSpace(sel.Find("h1, h2, h3, h4, h5").First().Text())
			if title == "" {
				title = strings.TrimSpace(link.Text())
			}
			if len(title) >= 10 {
				add(href)
			}
		})
	}

	return links
}

// ExtractArticle produces a full Article from article-page HTML.
// Content failing the length gate returns ErrContentTooShort.
func (e *Extractor) ExtractArticle(html, rawURL, source string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse article %s: %w", rawURL, err)
	}

	content := e.extractContent(doc)
	if len(content) < e.minContentLength {
		return nil, fmt.Errorf("%w: %s (%d chars)", ErrContentTooShort, rawURL, len(content))
	}

	article := &Article{
		URL:       rawURL,
		Source:    source,
		Content:   content,
		WordCount: len(strings.Fields(content)),
		ScrapedAt: e.now(),
	}

	e.extractMetadata(doc, rawURL, article)

	if article.Title == "" {
		article.Title = "Titre non disponible"
	}
	if article.Summary == "" {
		article.Summary = truncate(content, 200) + "..."
	}

	article.QualityScore = e.qualityScore(article)

	return article, nil
}

// extractContent tries the content strategies in order and returns the first
// text passing the length gate, or the longest candidate otherwise.
func (e *Extractor) extractContent(doc *goquery.Document) string {
	// 1. <article> element, scaffolding stripped
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		sel.Find("script, style, nav, footer, aside, header").Remove()
		if text := blockText(sel); len(text) >= e.minContentLength {
			return text
		}
	}

	// 2. Common content-class containers
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		sel.Find("script, style").Remove()
		if text := blockText(sel); len(text) >= e.minContentLength {
			return text
		}
	}

	// 3. Long paragraphs concatenated
	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 100 {
			paragraphs = append(paragraphs, text)
		}
	})
	if joined := strings.Join(paragraphs, "\n\n"); len(joined) >= e.minContentLength {
		return joined
	}

	// 4. <main> (or body) with scaffolding and short noise lines removed
	sel := doc.Find("main").First()
	if sel.Length() == 0 {
		sel = doc.Find("body").First()
	}
	if sel.Length() > 0 {
		sel.Find("script, style, nav, footer, aside, header, form").Remove()
		var lines []string
		for _, line := range strings.Split(blockText(sel), "\n") {
			if len(strings.TrimSpace(line)) > 20 {
				lines = append(lines, strings.TrimSpace(line))
			}
		}
		return strings.Join(lines, "\n")
	}

	return ""
}

func (e *Extractor) extractMetadata(doc *goquery.Document, rawURL string, article *Article) {
	article.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		article.Summary = strings.TrimSpace(desc)
	} else if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		article.Summary = strings.TrimSpace(desc)
	}

	article.ImageURL = e.extractImage(doc, rawURL)

	if author, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
		article.Author = strings.TrimSpace(author)
	} else {
		doc.Find("span").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			class, _ := sel.Attr("class")
			if regexp.MustCompile(`(?i)author`).MatchString(class) {
				article.Author = strings.TrimSpace(sel.Text())
				return false
			}
			return true
		})
	}

	article.PublishedAt = e.extractPublishedAt(doc)

	if category, ok := doc.Find(`meta[property="article:section"]`).Attr("content"); ok {
		article.Category = strings.TrimSpace(category)
	}

	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if tag, ok := sel.Attr("content"); ok && strings.TrimSpace(tag) != "" {
			article.Tags = append(article.Tags, strings.TrimSpace(tag))
		}
	})
}

func (e *Extractor) extractImage(doc *goquery.Document, rawURL string) string {
	imageURL := ""

	if src, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		imageURL = strings.TrimSpace(src)
	}
	if imageURL == "" {
		if src, ok := doc.Find(`meta[name="twitter:image"]`).Attr("content"); ok {
			imageURL = strings.TrimSpace(src)
		}
	}
	if imageURL == "" {
		scopes := []*goquery.Selection{doc.Find("article").First(), doc.Find("main").First(), doc.Selection}
		for _, scope := range scopes {
			if scope == nil || scope.Length() == 0 {
				continue
			}
			img := scope.Find("img").First()
			if img.Length() == 0 {
				continue
			}
			for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
				if src, ok := img.Attr(attr); ok && src != "" {
					imageURL = src
					break
				}
			}
			if imageURL != "" {
				break
			}
		}
	}

	if imageURL == "" {
		return ""
	}

	// Icons and logos are not article images
	lower := strings.ToLower(imageURL)
	for _, skip := range []string{"icon", "logo", "avatar", "favicon", "sprite"} {
		if strings.Contains(lower, skip) {
			return ""
		}
	}

	if strings.HasPrefix(imageURL, "//") {
		return "https:" + imageURL
	}
	if base, err := url.Parse(rawURL); err == nil {
		return resolveURL(base, imageURL)
	}
	return imageURL
}

func (e *Extractor) extractPublishedAt(doc *goquery.Document) *time.Time {
	if datetime, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(datetime)); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}

	// French textual dates ("12 janvier 2025"), common on Moroccan sites
	text := doc.Find("time, .date, .post-date, .article-date, .published").Text()
	if m := frenchDateRe.FindStringSubmatch(text); m != nil {
		if t := parseFrenchDate(m); t != nil {
			return t
		}
	}

	return nil
}

// qualityScore implements the 0.40/0.30/0.20/0.10 weighting over length,
// finance keywords, metadata completeness and freshness.
func (e *Extractor) qualityScore(article *Article) float64 {
	score := 0.0

	switch {
	case article.WordCount >= 500:
		score += 0.40
	case article.WordCount >= 300:
		score += 0.30
	case article.WordCount >= 200:
		score += 0.20
	case article.WordCount >= 100:
		score += 0.10
	}

	text := strings.ToLower(article.Title + " " + article.Content)
	matches := 0
	for _, keyword := range financeKeywords {
		if strings.Contains(text, keyword) {
			matches++
		}
	}
	switch {
	case matches >= 5:
		score += 0.30
	case matches >= 3:
		score += 0.20
	case matches >= 1:
		score += 0.10
	}

	if article.ImageURL != "" {
		score += 0.05
	}
	if article.Author != "" {
		score += 0.05
	}
	if article.Category != "" {
		score += 0.05
	}
	if len(article.Tags) > 0 {
		score += 0.05
	}

	if article.PublishedAt != nil {
		age := e.now().Sub(*article.PublishedAt)
		switch {
		case age < 24*time.Hour:
			score += 0.10
		case age <= 48*time.Hour:
			score += 0.08
		case age <= 96*time.Hour:
			score += 0.05
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func parseFrenchDate(m []string) *time.Time {
	month, ok := frenchMonths[strings.ToLower(m[2])]
	if !ok {
		return nil
	}
	var day, year int
	fmt.Sscanf(m[1], "%d", &day)
	fmt.Sscanf(m[3], "%d", &year)
	if day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// blockText renders a selection as newline-separated trimmed text blocks
func blockText(sel *goquery.Selection) string {
	var parts []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n")
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func isGenericLinkText(text string) bool {
	switch strings.ToLower(text) {
	case "", "lire la suite", "en savoir plus", "...", "lire plus", "suite", "plus":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func matchesAnyRegex(regexes []*regexp.Regexp, s string) bool {
	for _, re := range regexes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
