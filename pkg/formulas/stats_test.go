package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	testCases := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"empty slice", []float64{}, 0},
		{"single value", []float64{5.0}, 5.0},
		{"multiple values", []float64{1, 2, 3, 4, 5}, 3.0},
		{"negative values", []float64{-2, 0, 2}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Mean(tc.data), 1e-9)
		})
	}
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))

	// Sample std dev of {2,4,4,4,5,5,7,9} is ~2.138
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.138, StdDev(data), 0.01)
}

func TestCalculateReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := CalculateReturns(prices)

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
}

func TestCalculateReturns_ZeroPrice(t *testing.T) {
	returns := CalculateReturns([]float64{0, 100})
	assert.Len(t, returns, 1)
	assert.Equal(t, 0.0, returns[0])
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))

	returns := []float64{0.01, -0.01, 0.01, -0.01}
	expected := StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, AnnualizedVolatility(returns), 1e-9)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	yPos := []float64{2, 4, 6, 8, 10}
	yNeg := []float64{10, 8, 6, 4, 2}

	assert.InDelta(t, 1.0, Correlation(x, yPos), 1e-9)
	assert.InDelta(t, -1.0, Correlation(x, yNeg), 1e-9)

	// Mismatched lengths and degenerate inputs return 0
	assert.Equal(t, 0.0, Correlation(x, []float64{1, 2}))
	assert.Equal(t, 0.0, Correlation([]float64{1}, []float64{1}))
	// Constant series has undefined correlation
	assert.Equal(t, 0.0, Correlation([]float64{3, 3, 3}, []float64{1, 2, 3}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5, 0, 100))
	assert.Equal(t, 100.0, Clamp(150, 0, 100))
	assert.Equal(t, 42.0, Clamp(42, 0, 100))
}
