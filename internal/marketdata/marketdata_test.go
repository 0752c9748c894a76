package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
)

func d(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

func TestWindows(t *testing.T) {
	w := Windows(d(2024, 1, 1), d(2024, 1, 10), 4)
	require.Len(t, w, 3)
	assert.Equal(t, Window{d(2024, 1, 1), d(2024, 1, 4)}, w[0])
	assert.Equal(t, Window{d(2024, 1, 5), d(2024, 1, 8)}, w[1])
	assert.Equal(t, Window{d(2024, 1, 9), d(2024, 1, 10)}, w[2])

	assert.Len(t, Windows(d(2024, 1, 1), d(2024, 1, 1), 10), 1)
	assert.Nil(t, Windows(d(2024, 1, 2), d(2024, 1, 1), 10))
}

func TestDedupe(t *testing.T) {
	bars := []model.Bar{{Date: d(2024, 1, 1)}, {Date: d(2024, 1, 2)}, {Date: d(2024, 1, 2)}, {Date: d(2024, 1, 3)}}
	out := Dedupe(bars)
	require.Len(t, out, 3)
	assert.Equal(t, d(2024, 1, 3), out[2].Date)
}

type stubSource struct {
	series *model.PriceSeries
	err    error
}

func (s stubSource) FetchHistory(context.Context, string, time.Time, time.Time) (*model.PriceSeries, error) {
	return s.series, s.err
}

func TestAPIError(t *testing.T) {
	err := &APIError{Provider: "EODHD", StatusCode: 401, Endpoint: "/eod/TSM.US", Message: "unauthorized"}
	assert.Equal(t, "EODHD API error: unauthorized (status: 401, endpoint: /eod/TSM.US)", err.Error())
}

func TestInstrumented_Success(t *testing.T) {
	series, err := model.NewPriceSeries("TSM", []model.Bar{{Date: d(2024, 1, 1), Close: 1}})
	require.NoError(t, err)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	h := metrics.NewHealthStatus("stub")

	src := &Instrumented{Source: stubSource{series: series}, Name: "stub", Metrics: m, Health: h}
	got, err := src.FetchHistory(context.Background(), "TSM", d(2024, 1, 1), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("stub")))
}

func TestInstrumented_WrapsFailures(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	apiErr := &APIError{Provider: "Angel", StatusCode: 500, Endpoint: "/x"}

	src := &Instrumented{Source: stubSource{err: apiErr}, Name: "angel", Metrics: m}
	_, err := src.FetchHistory(context.Background(), "TSM", d(2024, 1, 1), time.Time{})

	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	var target *APIError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, 500, target.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("angel")))
}
