package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScale_PassthroughWithShortHistory(t *testing.T) {
	s := NewScaler(90)

	assert.Equal(t, 72.5, s.Scale(72.5, nil))
	assert.Equal(t, 72.5, s.Scale(72.5, []float64{60}))
}

func TestScale_DegenerateWindowReturns50(t *testing.T) {
	s := NewScaler(90)

	history := []float64{60, 60, 60, 60}
	assert.Equal(t, 50.0, s.Scale(60, history))
	assert.Equal(t, 50.0, s.Scale(99, history))
	assert.Equal(t, 50.0, s.Scale(0, history))
}

func TestScale_MinMaxMapping(t *testing.T) {
	s := NewScaler(90)
	history := []float64{40, 50, 60}

	assert.InDelta(t, 0.0, s.Scale(40, history), 1e-9)
	assert.InDelta(t, 50.0, s.Scale(50, history), 1e-9)
	assert.InDelta(t, 100.0, s.Scale(60, history), 1e-9)
	assert.InDelta(t, 25.0, s.Scale(45, history), 1e-9)
}

func TestScale_ClampsOutsideWindow(t *testing.T) {
	s := NewScaler(90)
	history := []float64{40, 60}

	assert.Equal(t, 100.0, s.Scale(80, history))
	assert.Equal(t, 0.0, s.Scale(20, history))
}

func TestNewScaler_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultScalerWindow, NewScaler(0).WindowDays)
	assert.Equal(t, 30, NewScaler(30).WindowDays)
}

func TestScaleAll_PerComponentHistories(t *testing.T) {
	s := NewScaler(90)

	raw := Components{
		Momentum:       55,
		PriceStrength:  55,
		Volume:         55,
		Volatility:     55,
		EquityVsBonds:  55,
		MediaSentiment: 55,
	}
	history := ComponentHistory{
		Momentum:       []float64{50, 60},     // mid-window
		PriceStrength:  []float64{55, 55, 55}, // degenerate
		Volume:         []float64{55},         // passthrough
		Volatility:     []float64{0, 55},      // at max
		EquityVsBonds:  nil,                   // passthrough
		MediaSentiment: []float64{55, 100},    // at min
	}

	scaled := s.ScaleAll(raw, history)
	assert.InDelta(t, 50.0, scaled.Momentum, 1e-9)
	assert.Equal(t, 50.0, scaled.PriceStrength)
	assert.Equal(t, 55.0, scaled.Volume)
	assert.InDelta(t, 100.0, scaled.Volatility, 1e-9)
	assert.Equal(t, 55.0, scaled.EquityVsBonds)
	assert.InDelta(t, 0.0, scaled.MediaSentiment, 1e-9)
}
