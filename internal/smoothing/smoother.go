package smoothing

import (
	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/model"
)

// FallbackWindow is the SMA window used when LOWESS fails.
const FallbackWindow = 20

// Result is a smoothed close column and how it was produced.
type Result struct {
	Values model.Column
	Status model.SmoothingStatus
	Err    error // the LOWESS failure when Status.Degraded
}

// Smoother produces close_smooth for a series.
type Smoother struct {
	Frac           float64
	FallbackWindow int
}

// New returns a Smoother with frac 0.1 and a 20-day fallback.
func New() *Smoother {
	return &Smoother{Frac: DefaultFrac, FallbackWindow: FallbackWindow}
}

// Smooth fits LOWESS over (row index, close). On failure it returns the
// SMA fallback marked Degraded; it never fails outright.
func (s *Smoother) Smooth(closes []float64) Result {
	x := make([]float64, len(closes))
	for i := range x {
		x[i] = float64(i)
	}

	fit, err := Lowess(x, closes, s.Frac)
	if err == nil {
		return Result{Values: indicator.Defined(fit)}
	}

	return Result{
		Values: indicator.RollingSMA(indicator.Defined(closes), s.FallbackWindow),
		Status: model.SmoothingStatus{Degraded: true, Reason: err.Error()},
		Err:    err,
	}
}
