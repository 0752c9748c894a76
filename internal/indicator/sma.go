package indicator

import (
	"fmt"

	"trading-analysisv1/internal/model"
)

// SMA calculates Simple Moving Average over a rolling window.
// A window holding any undefined observation yields an undefined value.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	valid   []bool
	idx     int // current write position
	count   int // total values received
	invalid int // undefined observations currently in the window
	current model.Float
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		buf:    make([]float64, period),
		valid:  make([]bool, period),
	}
}

func (s *SMA) Name() string { return fmt.Sprintf("SMA_%d", s.period) }

func (s *SMA) Update(x model.Float) {
	if s.count >= s.period && !s.valid[s.idx] {
		// The oldest value being overwritten was undefined
		s.invalid--
	}

	s.buf[s.idx] = x.V
	s.valid[s.idx] = x.Valid
	if !x.Valid {
		s.invalid++
	}
	s.idx = (s.idx + 1) % s.period
	s.count++

	s.current = model.Float{}
	if s.count >= s.period && s.invalid == 0 {
		// Summed fresh from the buffer; no running-total drift across long histories.
		sum := 0.0
		for _, v := range s.buf {
			sum += v
		}
		s.current = model.NewFloat(sum / float64(s.period))
	}
}

func (s *SMA) Value() model.Float { return s.current }
func (s *SMA) Ready() bool        { return s.current.Valid }

// window returns the buffered observations oldest first. Only meaningful
// once the window is full and fully defined.
func (s *SMA) window() []float64 {
	out := make([]float64, 0, s.period)
	out = append(out, s.buf[s.idx:]...)
	return append(out, s.buf[:s.idx]...)
}

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.invalid = 0
	s.current = model.Float{}
	for i := range s.buf {
		s.buf[i] = 0
		s.valid[i] = false
	}
}

// RollingSMA is the column form of SMA.
func RollingSMA(in model.Column, period int) model.Column {
	return Run(NewSMA(period), in)
}
