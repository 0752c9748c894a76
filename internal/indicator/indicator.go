// Package indicator provides technical indicator calculations over daily bars.
//
// Every indicator is a streaming value: it is fed one optional observation
// per row and reports an optional output. Run maps an indicator over a whole
// column, and Compute assembles the full FeatureFrame.
package indicator

import "trading-analysisv1/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "EWM_12").
	Name() string

	// Update feeds the next observation and recalculates.
	Update(x model.Float)

	// Value returns the current output. Undefined until enough data.
	Value() model.Float

	// Ready returns true when Value is defined.
	Ready() bool
}

// Run feeds every row of in through ind and collects the outputs.
func Run(ind Indicator, in model.Column) model.Column {
	out := model.NewColumn(len(in))
	for i, x := range in {
		ind.Update(x)
		out[i] = ind.Value()
	}
	return out
}

// Defined lifts plain values into a column. NaN and ±Inf become undefined.
func Defined(xs []float64) model.Column {
	out := model.NewColumn(len(xs))
	for i, x := range xs {
		out[i] = model.NewFloat(x)
	}
	return out
}
