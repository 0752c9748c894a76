package indicator

import (
	"fmt"

	"trading-analysisv1/internal/model"
)

// EWM calculates an exponentially weighted mean with adjusted weights:
// the value at t is Σ (1-α)^i · x[t-i] / Σ (1-α)^i over all history,
// with α = 2/(span+1). It is defined from the first observation.
// O(1) per update; no window storage needed.
type EWM struct {
	span  int
	decay float64 // 1 - α
	num   float64
	den   float64
}

// NewEWM creates an adjusted EWM with the given span.
func NewEWM(span int) *EWM {
	alpha := 2.0 / float64(span+1)
	return &EWM{span: span, decay: 1 - alpha}
}

func (e *EWM) Name() string { return fmt.Sprintf("EWM_%d", e.span) }

func (e *EWM) Update(x model.Float) {
	// Undefined observations still age the existing weights.
	e.num *= e.decay
	e.den *= e.decay
	if x.Valid {
		e.num += x.V
		e.den++
	}
}

func (e *EWM) Value() model.Float {
	if e.den == 0 {
		return model.Float{}
	}
	return model.NewFloat(e.num / e.den)
}

func (e *EWM) Ready() bool { return e.den > 0 }

// Reset clears the EWM state for reuse.
func (e *EWM) Reset() {
	e.num = 0
	e.den = 0
}

// MACD is EWM(fast) − EWM(slow) of the input column.
func MACD(in model.Column, fast, slow int) model.Column {
	f := Run(NewEWM(fast), in)
	s := Run(NewEWM(slow), in)
	out := model.NewColumn(len(in))
	for i := range in {
		if f[i].Valid && s[i].Valid {
			out[i] = model.NewFloat(f[i].V - s[i].V)
		}
	}
	return out
}
