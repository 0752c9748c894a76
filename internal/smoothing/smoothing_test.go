package smoothing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexAxis(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

func TestLowess_ReproducesLine(t *testing.T) {
	// A local linear fit of exact linear data is the data itself.
	n := 120
	x := indexAxis(n)
	y := make([]float64, n)
	for i := range y {
		y[i] = 5 + 2*x[i]
	}

	fit, err := Lowess(x, y, DefaultFrac)
	require.NoError(t, err)
	require.Len(t, fit, n)
	for i := range fit {
		assert.InDelta(t, y[i], fit[i], 1e-9, "index %d", i)
	}
}

func TestLowess_Constant(t *testing.T) {
	n := 50
	y := make([]float64, n)
	for i := range y {
		y[i] = 42
	}
	fit, err := Lowess(indexAxis(n), y, DefaultFrac)
	require.NoError(t, err)
	for i := range fit {
		assert.InDelta(t, 42.0, fit[i], 1e-9)
	}
}

func TestLowess_DampensNoise(t *testing.T) {
	// Alternating ±1 around a flat level: the fit stays near the level.
	n := 200
	y := make([]float64, n)
	for i := range y {
		y[i] = 100
		if i%2 == 0 {
			y[i]++
		} else {
			y[i]--
		}
	}
	fit, err := Lowess(indexAxis(n), y, DefaultFrac)
	require.NoError(t, err)
	for i := 20; i < n-20; i++ {
		assert.InDelta(t, 100.0, fit[i], 0.2, "index %d", i)
	}
}

func TestLowess_TwoPointNeighbourhood(t *testing.T) {
	// n=20, frac=0.1 gives k=2: the neighbour sits on the radius and gets
	// zero weight, so each point fits itself.
	y := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3, 2, 3, 8, 4}
	fit, err := Lowess(indexAxis(len(y)), y, DefaultFrac)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, fit, 1e-12)
}

func TestLowess_TooFewPoints(t *testing.T) {
	_, err := Lowess(indexAxis(15), make([]float64, 15), DefaultFrac)
	assert.ErrorIs(t, err, ErrSmoothingFailed)

	_, err = Lowess(nil, nil, DefaultFrac)
	assert.ErrorIs(t, err, ErrSmoothingFailed)
}

func TestLowess_BadInput(t *testing.T) {
	_, err := Lowess(indexAxis(30), make([]float64, 29), DefaultFrac)
	assert.ErrorIs(t, err, ErrSmoothingFailed)

	_, err = Lowess(indexAxis(30), make([]float64, 30), 0)
	assert.ErrorIs(t, err, ErrSmoothingFailed)
}

func TestLowess_NonFinite(t *testing.T) {
	n := 100
	y := make([]float64, n)
	for i := range y {
		y[i] = 10
	}
	y[50] = math.Inf(1)
	_, err := Lowess(indexAxis(n), y, DefaultFrac)
	assert.True(t, errors.Is(err, ErrSmoothingFailed))
}

func TestSmooth_UsesLowess(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 50 + float64(i)
	}
	res := New().Smooth(closes)
	require.NoError(t, res.Err)
	assert.False(t, res.Status.Degraded)
	assert.Empty(t, res.Status.Reason)
	require.Len(t, res.Values, 100)
	for i, v := range res.Values {
		require.True(t, v.Valid)
		assert.InDelta(t, closes[i], v.V, 1e-9)
	}
}

func TestSmooth_FallbackToSMA(t *testing.T) {
	// 19 closes is too short for LOWESS (k=1) and for the 20-day fallback.
	closes := make([]float64, 19)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	res := New().Smooth(closes)
	assert.ErrorIs(t, res.Err, ErrSmoothingFailed)
	assert.True(t, res.Status.Degraded)
	assert.NotEmpty(t, res.Status.Reason)
	require.Len(t, res.Values, 19)
	for _, v := range res.Values {
		assert.False(t, v.Valid)
	}
}

func TestSmooth_FallbackValues(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	s := &Smoother{Frac: 0.01, FallbackWindow: 20} // k=0 forces the fallback
	res := s.Smooth(closes)
	require.True(t, res.Status.Degraded)

	for i := 0; i < 19; i++ {
		assert.False(t, res.Values[i].Valid, "row %d", i)
	}
	// Mean of 1..20 is 10.5; each later row shifts by one.
	for i := 19; i < 25; i++ {
		require.True(t, res.Values[i].Valid)
		assert.InDelta(t, 10.5+float64(i-19), res.Values[i].V, 1e-12)
	}
}
