// Package risk projects forward scenarios from historical daily returns:
// percentile scenarios, loss and volatility metrics, and a Monte Carlo
// projection of terminal portfolio value.
package risk

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trading-analysisv1/internal/model"
)

// ErrScenarioUnavailable wraps every computational failure in this package.
var ErrScenarioUnavailable = errors.New("scenario unavailable")

// TradingDays annualises daily volatility.
const TradingDays = 252

// Outcome says whether a result was computed. When Available is false the
// numeric fields are meaningless and Reason explains why.
type Outcome struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Unavailable builds a failed Outcome from err.
func Unavailable(err error) Outcome {
	return Outcome{Available: false, Reason: err.Error()}
}

var available = Outcome{Available: true}

// Scenarios values the investment at the historical P25, mean and P75 daily return.
type Scenarios struct {
	Outcome
	Conservative float64 `json:"conservative"`
	Expected     float64 `json:"expected"`
	Optimistic   float64 `json:"optimistic"`
}

// Metrics are loss and volatility figures for the investment.
type Metrics struct {
	Outcome
	MaxHistoricalLoss float64 `json:"max_historical_loss"`
	VaR95             float64 `json:"var_95"`
	AnnualVolatility  float64 `json:"annual_volatility"`
}

// sample holds the defined returns, kept sorted for percentiles.
type sample struct {
	sorted []float64
}

func newSample(returns model.Column, investment float64, minLen int) (sample, error) {
	if math.IsNaN(investment) || math.IsInf(investment, 0) || investment <= 0 {
		return sample{}, fmt.Errorf("%w: investment %v must be positive", ErrScenarioUnavailable, investment)
	}
	xs := returns.Defined()
	if len(xs) < minLen {
		return sample{}, fmt.Errorf("%w: %d defined returns, need %d", ErrScenarioUnavailable, len(xs), minLen)
	}
	sort.Float64s(xs)
	return sample{sorted: xs}, nil
}

func (s sample) pct(p float64) float64 { return percentileSorted(s.sorted, p) }

func finite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite result", ErrScenarioUnavailable)
		}
	}
	return nil
}

// HistoricalScenarios drops undefined returns and values investment at
// (1+P25), (1+mean) and (1+P75).
func HistoricalScenarios(returns model.Column, investment float64) (Scenarios, error) {
	s, err := newSample(returns, investment, 1)
	if err != nil {
		return Scenarios{}, err
	}
	out := Scenarios{
		Outcome:      available,
		Conservative: investment * (1 + s.pct(25)),
		Expected:     investment * (1 + stat.Mean(s.sorted, nil)),
		Optimistic:   investment * (1 + s.pct(75)),
	}
	if err := finite(out.Conservative, out.Expected, out.Optimistic); err != nil {
		return Scenarios{}, err
	}
	return out, nil
}

// ComputeMetrics returns the worst day, the 95% one-day VaR (P5 × investment)
// and sample volatility annualised over 252 days.
func ComputeMetrics(returns model.Column, investment float64) (Metrics, error) {
	s, err := newSample(returns, investment, 2)
	if err != nil {
		return Metrics{}, err
	}
	out := Metrics{
		Outcome:           available,
		MaxHistoricalLoss: floats.Min(s.sorted) * investment,
		VaR95:             s.pct(5) * investment,
		AnnualVolatility:  stat.StdDev(s.sorted, nil) * math.Sqrt(TradingDays),
	}
	if err := finite(out.MaxHistoricalLoss, out.VaR95, out.AnnualVolatility); err != nil {
		return Metrics{}, err
	}
	return out, nil
}
