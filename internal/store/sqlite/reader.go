package sqlite

import (
	"context"
	"fmt"
	"time"

	"trading-analysisv1/internal/model"
)

// FetchHistory reads stored bars for symbol dated in [from, to], ascending.
// A zero to reads to the end. No rows is reported as model.ErrDataUnavailable.
func (s *Store) FetchHistory(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	upper := "9999-12-31"
	if !to.IsZero() {
		upper = to.Format(model.DateLayout)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, from.Format(model.DateLayout), upper)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite query daily_bars: %v", model.ErrDataUnavailable, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var date string
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("%w: sqlite scan daily_bars: %v", model.ErrDataUnavailable, err)
		}
		if b.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: bad stored date %q", model.ErrDataUnavailable, date)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no stored bars for %s from %s", model.ErrDataUnavailable, symbol, from.Format(model.DateLayout))
	}
	return model.NewPriceSeries(symbol, bars)
}
