// Package market fetches Casablanca Stock Exchange quotes and serves the
// MASI bar series the index components consume. Live quotes come from the
// exchange's table-structured pages; history is synthesized deterministically
// when no live source is available.
package market

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const quoteURL = "https://www.casablanca-bourse.com/fr/live-market/indices/MASI"

// Quote is one live market snapshot
type Quote struct {
	Symbol        string    `json:"symbol"`
	Last          float64   `json:"last"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	AsOf          time.Time `json:"as_of"`
}

// Bar is one daily OHLCV observation
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PageFetcher fetches a page and returns its body and final URL
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, string, error)
}

// Client reads MASI market data
type Client struct {
	fetcher PageFetcher
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates a market client
func NewClient(fetcher PageFetcher, log zerolog.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		log:     log.With().Str("component", "market").Logger(),
		now:     time.Now,
	}
}

// FetchLive returns current quotes from the exchange's quote page. Any
// failure degrades to a single stable MASI fallback quote, never an error:
// the pipeline must keep producing with the market source down.
func (c *Client) FetchLive(ctx context.Context) []Quote {
	body, _, err := c.fetcher.Fetch(ctx, quoteURL)
	if err != nil {
		c.log.Warn().Err(err).Msg("Live quote fetch failed, using fallback")
		return c.fallbackQuotes()
	}

	quotes := c.parseLive(body)
	if len(quotes) == 0 {
		c.log.Warn().Msg("No quotes parsed, using fallback")
		return c.fallbackQuotes()
	}

	c.log.Info().Int("quotes", len(quotes)).Msg("Live quotes parsed")
	return quotes
}

// parseLive reads the two table shapes the exchange serves: a per-instrument
// table (Instrument, Cours, Cours Veille, Variation, Volume, Quantité) and
// the index-level table (Valeur, Veille, Variation%).
func (c *Client) parseLive(html string) []Quote {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to parse quote page")
		return nil
	}

	now := c.now().UTC()
	var quotes []Quote

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		table.Find("th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(th.Text()))
		})

		instrumentTable := containsHeader(headers, "Instrument")
		indexTable := containsHeader(headers, "Valeur")
		if !instrumentTable && !indexTable {
			return
		}

		table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
			var cols []string
			row.Find("td").Each(func(_ int, td *goquery.Selection) {
				cols = append(cols, strings.TrimSpace(td.Text()))
			})
			if len(cols) < 3 {
				return
			}

			if instrumentTable && len(cols) >= 5 {
				last := parseFrenchFloat(cols[1])
				if cols[0] == "" || last <= 0 {
					return
				}
				quotes = append(quotes, Quote{
					Symbol:        cols[0],
					Last:          last,
					ChangePercent: parseFrenchFloat(cols[3]),
					Volume:        int64(parseFrenchFloat(cols[4])),
					AsOf:          now,
				})
				return
			}

			if indexTable {
				last := parseFrenchFloat(cols[0])
				if last <= 0 {
					return
				}
				quotes = append(quotes, Quote{
					Symbol:        "MASI",
					Last:          last,
					ChangePercent: parseFrenchFloat(cols[2]),
					Volume:        0,
					AsOf:          now,
				})
			}
		})
	})

	return quotes
}

func (c *Client) fallbackQuotes() []Quote {
	now := c.now()
	return []Quote{{
		Symbol:        "MASI",
		Last:          12500.0 + float64(now.Hour()%10)*50,
		ChangePercent: 0.5,
		Volume:        1_000_000,
		AsOf:          now.UTC(),
	}}
}

func containsHeader(headers []string, name string) bool {
	for _, h := range headers {
		if strings.Contains(h, name) {
			return true
		}
	}
	return false
}

// parseFrenchFloat parses numbers like "1 234,56" or "-0,42%". Empty cells
// and placeholders parse to 0.
func parseFrenchFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	s = strings.NewReplacer(" ", "", " ", "", "%", "", ",", ".").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
