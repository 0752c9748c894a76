// Package marketdata holds what the history providers share: the typed
// provider error, date-range chunking and a metrics wrapper around any
// model.HistorySource.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
)

// APIError is a non-success response from a provider endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s (status: %d, endpoint: %s)", e.Provider, e.Message, e.StatusCode, e.Endpoint)
}

// Window is an inclusive calendar-day range.
type Window struct {
	From, To time.Time
}

// Windows splits [from, to] into consecutive ranges of at most maxDays days.
// Returns nil when to is before from.
func Windows(from, to time.Time, maxDays int) []Window {
	if maxDays < 1 {
		maxDays = 1
	}
	var out []Window
	for start := from; !start.After(to); {
		end := start.AddDate(0, 0, maxDays-1)
		if end.After(to) {
			end = to
		}
		out = append(out, Window{From: start, To: end})
		start = end.AddDate(0, 0, 1)
	}
	return out
}

// Instrumented wraps a HistorySource with fetch timing, error counting and
// logging. Every failure it returns wraps model.ErrDataUnavailable.
type Instrumented struct {
	Source  model.HistorySource
	Name    string
	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus
	Logger  *slog.Logger
}

func (s *Instrumented) FetchHistory(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()
	series, err := s.Source.FetchHistory(ctx, symbol, from, to)
	took := time.Since(start)

	if s.Metrics != nil {
		s.Metrics.FetchDur.WithLabelValues(s.Name).Observe(took.Seconds())
	}
	if s.Health != nil {
		s.Health.SetSourceOK(err == nil)
	}
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.FetchErrors.WithLabelValues(s.Name).Inc()
		}
		log.Error("history fetch failed", "source", s.Name, "symbol", symbol, "error", err)
		if !errors.Is(err, model.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %s: %w", model.ErrDataUnavailable, s.Name, err)
		}
		return nil, err
	}

	log.Info("history fetched", "source", s.Name, "symbol", symbol, "rows", series.Len(),
		"first", series.First().Format(model.DateLayout), "last", series.Last().Format(model.DateLayout), "took", took)
	return series, nil
}

// Dedupe drops bars whose date is not after the previous kept bar, in place.
// Chunked provider responses can overlap by a day at the boundaries.
func Dedupe(bars []model.Bar) []model.Bar {
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && !b.Date.After(out[len(out)-1].Date) {
			continue
		}
		out = append(out, b)
	}
	return out
}
