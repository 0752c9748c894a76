package indicator

import (
	"fmt"
	"math"

	"trading-analysisv1/internal/model"
)

// StdDev is the rolling sample standard deviation (n-1 denominator).
// It shares SMA's window and undefined-propagation rules.
type StdDev struct {
	win *SMA
}

// NewStdDev creates a rolling sample standard deviation. period must be ≥ 2
// for a defined value.
func NewStdDev(period int) *StdDev {
	return &StdDev{win: NewSMA(period)}
}

func (s *StdDev) Name() string { return fmt.Sprintf("STD_%d", s.win.period) }

func (s *StdDev) Update(x model.Float) { s.win.Update(x) }

func (s *StdDev) Value() model.Float {
	mean := s.win.Value()
	if !mean.Valid || s.win.period < 2 {
		return model.Float{}
	}
	ss := 0.0
	for _, v := range s.win.window() {
		d := v - mean.V
		ss += d * d
	}
	return model.NewFloat(math.Sqrt(ss / float64(s.win.period-1)))
}

func (s *StdDev) Ready() bool { return s.Value().Valid }

// RollingStd is the column form of StdDev.
func RollingStd(in model.Column, period int) model.Column {
	return Run(NewStdDev(period), in)
}
