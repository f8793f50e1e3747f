package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_PositiveFinancialText(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("La croissance du marché marocain est excellente avec des bénéfices remarquables")
	assert.Greater(t, res.Score, 0.3)
	assert.Greater(t, res.Confidence, 0.0)
	assert.Contains(t, []string{LabelPositive, LabelVeryPositive}, res.Label)
}

func TestAnalyze_NegativeFinancialText(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("La crise économique cause des difficultés majeures avec une récession prévue")
	assert.Less(t, res.Score, -0.3)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestAnalyze_NeutralText(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("Le conseil se réunit mardi prochain selon le calendrier habituel")
	assert.InDelta(t, 0.0, res.Score, 0.3)
	assert.Equal(t, LabelNeutral, res.Label)
}

func TestAnalyze_EmptyText(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("")
	assert.Zero(t, res.Score)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, LabelNeutral, res.Label)
}

func TestAnalyze_MoroccoRecognition(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("Reconnaissance américaine du Sahara marocain, création d'emplois")
	assert.Greater(t, res.Score, 0.5)
	assert.Contains(t, []string{LabelPositive, LabelVeryPositive}, res.Label)
}

func TestAnalyze_SanctionsAgainstMorocco(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("Sanctions contre le Maroc")
	assert.Less(t, res.Score, -0.5)
	assert.Contains(t, []string{LabelNegative, LabelVeryNegative}, res.Label)
}

func TestAnalyze_ResolutionContext(t *testing.T) {
	l := NewLexicon()

	// "conflit" is negative alone, but a resolution word in the window
	// turns the phrase bullish
	res := l.Analyze("moment historique pour résoudre le conflit")
	assert.GreaterOrEqual(t, res.Score, 0.4)
}

func TestAnalyze_ConflictWithoutResolution(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("Le conflit provoque des tensions et une forte inquiétude")
	assert.Less(t, res.Score, 0.0)
}

func TestAnalyze_Negation(t *testing.T) {
	l := NewLexicon()

	res := l.Analyze("Le marché n'est pas en crise")
	assert.Greater(t, res.Score, 0.0, "negated negative words must count as positive")
}

func TestAnalyze_Intensifiers(t *testing.T) {
	l := NewLexicon()

	plain := l.Analyze("Une performance du marché et une croissance continue")
	intensified := l.Analyze("Une très forte performance et une croissance extrêmement soutenue")

	assert.Greater(t, intensified.Score, 0.5)
	assert.GreaterOrEqual(t, intensified.Score, plain.Score)
}

func TestAnalyze_Deterministic(t *testing.T) {
	l := NewLexicon()

	text := "Reconnaissance internationale et investissements malgré quelques tensions"
	first := l.Analyze(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, l.Analyze(text))
	}
}

func TestScoreArticle_CombinesTitleAndSummary(t *testing.T) {
	l := NewLexicon()

	res, err := l.ScoreArticle(context.Background(), "Croissance exceptionnelle du marché",
		"Le marché marocain affiche des performances remarquables")
	require.NoError(t, err)
	assert.Greater(t, res.Score, 0.0)
}

func TestLabelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.8, LabelVeryPositive},
		{0.6, LabelVeryPositive},
		{0.4, LabelPositive},
		{0.0, LabelNeutral},
		{0.29, LabelNeutral},
		{-0.29, LabelNeutral},
		{-0.4, LabelNegative},
		{-0.8, LabelVeryNegative},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelFor(tt.score), "score %v", tt.score)
	}
}

func TestNormalizeTo100(t *testing.T) {
	assert.InDelta(t, 0.0, NormalizeTo100(-1), 1e-9)
	assert.InDelta(t, 50.0, NormalizeTo100(0), 1e-9)
	assert.InDelta(t, 100.0, NormalizeTo100(1), 1e-9)
}

func TestDailyScore(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Zero(t, DailyScore(nil))
	})

	t.Run("confidence weighted", func(t *testing.T) {
		results := []Result{
			{Score: 1.0, Confidence: 0.8},
			{Score: -1.0, Confidence: 0.2},
		}
		assert.InDelta(t, 0.6, DailyScore(results), 1e-9)
	})

	t.Run("zero confidence falls back to simple average", func(t *testing.T) {
		results := []Result{
			{Score: 0.5, Confidence: 0},
			{Score: -0.1, Confidence: 0},
		}
		assert.InDelta(t, 0.2, DailyScore(results), 1e-9)
	})
}
