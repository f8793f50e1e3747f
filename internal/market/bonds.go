package market

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const bondsURL = "https://www.bkam.ma/Taux-indicatifs-du-marche-secondaire"

// ErrNoBondTable is returned when the yields page carries no parseable table
var ErrNoBondTable = errors.New("cannot locate bond yields table")

// BondYield is one secondary-market indicative rate from Bank Al-Maghrib
type BondYield struct {
	AsOf          time.Time `json:"as_of"`
	MaturityYears float64   `json:"maturity_years"`
	YieldPercent  float64   `json:"yield_percent"`
}

// BondsClient scrapes Moroccan treasury yields. It backs the
// equity-vs-bonds component; callers fall back to a constant yield when
// it fails.
type BondsClient struct {
	fetcher PageFetcher
	log     zerolog.Logger
	now     func() time.Time
}

// NewBondsClient creates a bond yields client
func NewBondsClient(fetcher PageFetcher, log zerolog.Logger) *BondsClient {
	return &BondsClient{
		fetcher: fetcher,
		log:     log.With().Str("component", "bonds").Logger(),
		now:     time.Now,
	}
}

// Fetch returns current indicative yields by maturity
func (b *BondsClient) Fetch(ctx context.Context) ([]BondYield, error) {
	body, _, err := b.fetcher.Fetch(ctx, bondsURL)
	if err != nil {
		return nil, err
	}
	return b.parse(body)
}

func (b *BondsClient) parse(html string) ([]BondYield, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoBondTable
	}

	asOf := b.now().UTC()
	var yields []BondYield

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) < 3 {
			return
		}

		fields := strings.Fields(cells[0])
		if len(fields) == 0 {
			return
		}
		// sub-year maturities appear as "0,25 ans"
		maturity, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
		if err != nil {
			return
		}

		yieldPercent, err := strconv.ParseFloat(strings.ReplaceAll(cells[2], ",", "."), 64)
		if err != nil {
			b.log.Debug().Strs("row", cells).Msg("Skipping bond row")
			return
		}

		yields = append(yields, BondYield{
			AsOf:          asOf,
			MaturityYears: maturity,
			YieldPercent:  yieldPercent,
		})
	})

	b.log.Info().Int("yields", len(yields)).Msg("Bond yields parsed")
	return yields, nil
}
