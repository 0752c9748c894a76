package model

import (
	"context"
	"errors"
	"time"
)

// ── Market-data Port Interfaces ──
// The analysis core only sees these interfaces. Providers (Angel One, EODHD)
// and the local SQLite store each satisfy one or more of them.

// ErrDataUnavailable is wrapped by every HistorySource failure.
// It is fatal to an analysis run.
var ErrDataUnavailable = errors.New("market data unavailable")

// HistorySource fetches daily history for a symbol.
type HistorySource interface {
	// FetchHistory returns bars dated in [from, to]. A zero to means "until now".
	FetchHistory(ctx context.Context, symbol string, from, to time.Time) (*PriceSeries, error)
}

// BarWriter persists fetched bars for offline runs.
type BarWriter interface {
	// WriteBars upserts bars for symbol and returns how many were written.
	WriteBars(ctx context.Context, symbol string, bars []Bar) (int, error)

	// Close releases underlying resources.
	Close() error
}
