// Package backtest turns a SignalSet into positions and next-day strategy
// returns. No costs, slippage or sizing are modelled.
package backtest

import (
	"fmt"

	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/strategy"
)

// Result is the deterministic outcome of one backtest pass.
type Result struct {
	// Positions[t] is in {-2,-1,0,1,2}.
	Positions []int
	// Winning[t] is the kind whose assignment survived on row t.
	Winning []strategy.Kind
	// StrategyReturns[t] = Positions[t] × returns[t+1]; undefined on the last row.
	StrategyReturns model.Column
	// Cumulative[t] compounds every defined strategy return up to t.
	Cumulative model.Column
}

// Run assigns positions in strategy.Kinds order, later kinds overwriting
// earlier ones, then applies each position to the following day's return.
func Run(frame *model.FeatureFrame, signals *strategy.SignalSet) (*Result, error) {
	n := frame.Len()
	if signals.Len() != n || len(frame.Returns) != n {
		return nil, fmt.Errorf("backtest: %d signal rows and %d return rows for %d bars",
			signals.Len(), len(frame.Returns), n)
	}

	res := &Result{
		Positions: make([]int, n),
		Winning:   make([]strategy.Kind, n),
	}
	for _, k := range strategy.Kinds {
		for t, on := range signals.Mask(k) {
			if on {
				res.Positions[t] = k.Position()
				res.Winning[t] = k
			}
		}
	}

	res.StrategyReturns = StrategyReturns(res.Positions, frame.Returns)
	res.Cumulative = Cumulative(res.StrategyReturns)
	return res, nil
}

// StrategyReturns applies positions[t] to returns[t+1].
func StrategyReturns(positions []int, returns model.Column) model.Column {
	out := model.NewColumn(len(positions))
	for t := 0; t+1 < len(positions) && t+1 < len(returns); t++ {
		if next := returns[t+1]; next.Valid {
			out[t] = model.NewFloat(float64(positions[t]) * next.V)
		}
	}
	return out
}

// Cumulative is the running compounded return, Π(1+r) − 1, over the defined
// rows. Undefined rows stay undefined and do not break the chain.
func Cumulative(returns model.Column) model.Column {
	out := model.NewColumn(len(returns))
	growth := 1.0
	for t, r := range returns {
		if !r.Valid {
			continue
		}
		growth *= 1 + r.V
		out[t] = model.NewFloat(growth - 1)
	}
	return out
}

// Total is the plain sum of defined strategy returns.
func (r *Result) Total() float64 {
	sum := 0.0
	for _, v := range r.StrategyReturns {
		if v.Valid {
			sum += v.V
		}
	}
	return sum
}

// Final is the last defined cumulative return, or 0 when none.
func (r *Result) Final() float64 {
	for t := len(r.Cumulative) - 1; t >= 0; t-- {
		if r.Cumulative[t].Valid {
			return r.Cumulative[t].V
		}
	}
	return 0
}

// Active counts rows with a non-zero position.
func (r *Result) Active() int {
	n := 0
	for _, p := range r.Positions {
		if p != 0 {
			n++
		}
	}
	return n
}
