package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-analysisv1/internal/model"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func bars(start time.Time, n int) []model.Bar {
	out := make([]model.Bar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: int64(1000 + i),
		}
	}
	return out
}

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestWriteAndFetch(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	n, err := s.WriteBars(ctx, "TSM", bars(jan1, 1200)) // spans three batches
	require.NoError(t, err)
	assert.Equal(t, 1200, n)

	series, err := s.FetchHistory(ctx, "TSM", jan1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1200, series.Len())
	assert.Equal(t, "TSM", series.Symbol())
	assert.Equal(t, jan1, series.First())
	assert.Equal(t, 100.0, series.Bar(0).Close)
	assert.Equal(t, int64(1000), series.Bar(0).Volume)

	// Inclusive bounds: Jan 5 .. Jan 9 is five rows.
	series, err = s.FetchHistory(ctx, "TSM", jan1.AddDate(0, 0, 4), jan1.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.Equal(t, 5, series.Len())
	assert.Equal(t, 104.0, series.Bar(0).Close)
}

func TestWriteBars_Upserts(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	_, err := s.WriteBars(ctx, "TSM", bars(jan1, 3))
	require.NoError(t, err)

	fix := bars(jan1, 1)
	fix[0].Close = 55
	_, err = s.WriteBars(ctx, "TSM", fix)
	require.NoError(t, err)

	series, err := s.FetchHistory(ctx, "TSM", jan1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, series.Len())
	assert.Equal(t, 55.0, series.Bar(0).Close)
}

func TestFetchHistory_Empty(t *testing.T) {
	s := openMemory(t)
	_, err := s.FetchHistory(context.Background(), "NONE", jan1, time.Time{})
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestFetchHistory_SymbolsIsolated(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	_, err := s.WriteBars(ctx, "TSM", bars(jan1, 4))
	require.NoError(t, err)
	_, err = s.WriteBars(ctx, "AAPL", bars(jan1, 2))
	require.NoError(t, err)

	series, err := s.FetchHistory(ctx, "AAPL", jan1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestLastDate(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	d, err := s.LastDate(ctx, "TSM")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = s.WriteBars(ctx, "TSM", bars(jan1, 10))
	require.NoError(t, err)
	d, err = s.LastDate(ctx, "TSM")
	require.NoError(t, err)
	assert.Equal(t, jan1.AddDate(0, 0, 9), d)
}
