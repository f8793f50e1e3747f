package backtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybenkirane/casagreed/internal/cache"
	"github.com/ybenkirane/casagreed/internal/database"
	"github.com/ybenkirane/casagreed/internal/index"
	"github.com/ybenkirane/casagreed/internal/market"
	"github.com/ybenkirane/casagreed/internal/modules/scores"
)

type stubMarket struct {
	bars []market.Bar
}

func (m *stubMarket) FetchHistory(days int) []market.Bar { return m.bars }

func newScoresRepo(t *testing.T) *scores.Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: database.ProfileStandard,
		Name:    "test",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return scores.NewRepository(db.Conn(), zerolog.Nop())
}

// alternatingBars builds n daily bars ending near today whose closes
// alternate 100/110, so every next-day direction is known
func alternatingBars(n int) []market.Bar {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]market.Bar, n)
	for i := range bars {
		c := 100.0
		if i%2 == 1 {
			c = 110.0
		}
		bars[i] = market.Bar{Date: end.AddDate(0, 0, i-n+1), Open: c, High: c, Low: c, Close: c, Volume: 1_000_000}
	}
	return bars
}

func TestRun_PerfectForesightScoresPerfectly(t *testing.T) {
	repo := newScoresRepo(t)
	bars := alternatingBars(40)

	// score 100 whenever tomorrow closes up, 0 otherwise
	for i := 0; i < 20; i++ {
		score := 0.0
		if bars[i+1].Close > bars[i].Close {
			score = 100.0
		}
		require.NoError(t, repo.Insert(&scores.Snapshot{
			AsOf:       bars[i].Date,
			Score:      score,
			Components: index.Components{Momentum: score},
		}))
	}

	svc := NewService(repo, &stubMarket{bars: bars}, cache.New("", zerolog.Nop()), zerolog.Nop())
	res, err := svc.Run(context.Background(), "90d", 90)
	require.NoError(t, err)

	assert.Equal(t, 20, res.TotalPeriods)
	assert.Equal(t, 1.0, res.DirectionalAccuracy1D)
	assert.Equal(t, 1.0, res.DirectionalAccuracy5D)
	assert.InDelta(t, 1.0, res.Correlation1D, 1e-9)
	assert.Equal(t, "90d", res.Range)
}

func TestRun_SmallSampleReportsZeros(t *testing.T) {
	repo := newScoresRepo(t)
	bars := alternatingBars(40)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(&scores.Snapshot{AsOf: bars[i].Date, Score: 60}))
	}

	svc := NewService(repo, &stubMarket{bars: bars}, cache.New("", zerolog.Nop()), zerolog.Nop())
	res, err := svc.Run(context.Background(), "30d", 90)
	require.NoError(t, err)

	assert.Equal(t, 5, res.TotalPeriods, "sample size stays honest")
	assert.Zero(t, res.Correlation1D)
	assert.Zero(t, res.DirectionalAccuracy1D)
}

func TestRun_SnapshotsWithoutBarsAreDropped(t *testing.T) {
	repo := newScoresRepo(t)
	bars := alternatingBars(40)

	// weekend-style snapshot with no matching session
	orphan := bars[0].Date.AddDate(0, 0, -200)
	require.NoError(t, repo.Insert(&scores.Snapshot{AsOf: orphan, Score: 80}))
	for i := 0; i < 12; i++ {
		require.NoError(t, repo.Insert(&scores.Snapshot{AsOf: bars[i].Date, Score: 55}))
	}

	svc := NewService(repo, &stubMarket{bars: bars}, cache.New("", zerolog.Nop()), zerolog.Nop())
	res, err := svc.Run(context.Background(), "1y", 365)
	require.NoError(t, err)

	assert.Equal(t, 12, res.TotalPeriods)
}

func TestDirectionalAccuracy(t *testing.T) {
	scoreVals := []float64{80, 30, 60, 20}
	returns := []float64{0.01, -0.02, -0.01, 0.03}

	assert.Equal(t, 0.5, directionalAccuracy(scoreVals, returns))
	assert.Equal(t, 0.0, directionalAccuracy(nil, nil))
}
