package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSeries is returned when bars violate the price series invariants.
var ErrInvalidSeries = errors.New("invalid price series")

// Bar is one trading day of OHLCV data.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is an immutable, date-ordered daily history for one instrument.
type PriceSeries struct {
	symbol string
	bars   []Bar
}

// NewPriceSeries validates bars and returns a series that owns a copy of them.
// Dates must be strictly increasing and every price and volume non-negative.
func NewPriceSeries(symbol string, bars []Bar) (*PriceSeries, error) {
	for i, b := range bars {
		if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 || b.Volume < 0 {
			return nil, fmt.Errorf("%w: negative value at %s", ErrInvalidSeries, b.Date.Format(DateLayout))
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("%w: date %s not after %s", ErrInvalidSeries,
				b.Date.Format(DateLayout), bars[i-1].Date.Format(DateLayout))
		}
	}
	own := make([]Bar, len(bars))
	copy(own, bars)
	return &PriceSeries{symbol: symbol, bars: own}, nil
}

// DateLayout is the calendar-day format used across providers and storage.
const DateLayout = "2006-01-02"

func (s *PriceSeries) Symbol() string { return s.symbol }
func (s *PriceSeries) Len() int       { return len(s.bars) }

// Bar returns the i-th bar.
func (s *PriceSeries) Bar(i int) Bar { return s.bars[i] }

// Bars returns a copy of all bars.
func (s *PriceSeries) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Closes returns the close prices in date order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volumes as floats in date order.
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// First and Last return the boundary dates. Zero for an empty series.
func (s *PriceSeries) First() time.Time {
	if len(s.bars) == 0 {
		return time.Time{}
	}
	return s.bars[0].Date
}

func (s *PriceSeries) Last() time.Time {
	if len(s.bars) == 0 {
		return time.Time{}
	}
	return s.bars[len(s.bars)-1].Date
}
