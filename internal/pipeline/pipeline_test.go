package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/risk"
	"trading-analysisv1/internal/strategy"
)

// steadySeries grows close by daily each bar with constant volume.
func steadySeries(t *testing.T, n int, daily float64) *model.PriceSeries {
	t.Helper()
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	price := 50.0
	for i := range bars {
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.005,
			Low:    price * 0.995,
			Close:  price,
			Volume: 250000,
		}
		price *= 1 + daily
	}
	s, err := model.NewPriceSeries("TSM", bars)
	require.NoError(t, err)
	return s
}

func quietOptions(buf *bytes.Buffer) Options {
	return Options{
		MonteCarlo: risk.MonteCarloConfig{Paths: 100, Days: 30, Seed: 3, Workers: 2},
		Logger:     slog.New(slog.NewJSONHandler(buf, nil)),
	}
}

func TestRun_SteadyUptrend(t *testing.T) {
	var buf bytes.Buffer
	a, err := Run(context.Background(), steadySeries(t, 300, 0.001), quietOptions(&buf))
	require.NoError(t, err)

	fr := a.Frame
	assert.False(t, a.Degraded())

	// Every delta is a gain → RSI pinned at 100 once defined.
	for i := 13; i < fr.Len(); i++ {
		require.True(t, fr.RSI[i].Valid, "row %d", i)
		assert.InDelta(t, 100.0, fr.RSI[i].V, 1e-9, "row %d", i)
	}

	// Trend is +1 wherever both averages exist.
	for i := 0; i < fr.Len(); i++ {
		if fr.MA50[i].Valid && fr.MA200[i].Valid {
			assert.Equal(t, model.TrendUp, fr.Trend[i], "row %d", i)
		} else {
			assert.False(t, fr.Trend[i].Defined(), "row %d", i)
		}
	}
	assert.True(t, fr.MA200[199].Valid)

	assert.Zero(t, a.Signals.Count(strategy.KindSell))
	assert.Zero(t, a.Signals.Count(strategy.KindStrongSell))
	assert.GreaterOrEqual(t, a.Backtest.Final(), 0.0)

	// Risk stage sees a constant +0.1% return.
	require.True(t, a.Risk.Scenarios.Available)
	assert.InDelta(t, 10010.0, a.Risk.Scenarios.Expected, 1e-6)
	require.True(t, a.Risk.MonteCarlo.Available)
	assert.InEpsilon(t, 10000*risk.Compound(1, 0.001, 30), a.Risk.MonteCarlo.P50, 1e-6)

	assert.NotEmpty(t, a.RunID)
	assert.Contains(t, buf.String(), "analysis finished")
}

func TestRun_ShortSeriesHasNoSignals(t *testing.T) {
	var buf bytes.Buffer
	a, err := Run(context.Background(), steadySeries(t, 150, -0.002), quietOptions(&buf))
	require.NoError(t, err)

	for i := 0; i < a.Frame.Len(); i++ {
		assert.False(t, a.Frame.MA200[i].Valid)
		assert.False(t, a.Frame.Trend[i].Defined())
	}
	for _, k := range strategy.Kinds {
		assert.Zero(t, a.Signals.Count(k), k.String())
	}
	assert.Zero(t, a.Backtest.Active())
}

func TestRun_DegradedSmoothingIsCounted(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	opts := quietOptions(&buf)
	opts.Metrics = metrics.NewMetrics(reg)

	// 15 rows: LOWESS neighbourhood is a single point.
	a, err := Run(context.Background(), steadySeries(t, 15, 0.01), opts)
	require.NoError(t, err)

	assert.True(t, a.Degraded())
	assert.NotEmpty(t, a.Frame.Smoothing.Reason)
	for _, v := range a.Frame.CloseSmooth {
		assert.False(t, v.Valid, "fallback window is longer than the series")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.SmoothingFallbacks))
	assert.Equal(t, 15.0, testutil.ToFloat64(opts.Metrics.RowsProcessed))
	assert.Contains(t, buf.String(), "using SMA fallback")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestRun_RiskUnavailableIsCounted(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	opts := quietOptions(&buf)
	opts.Metrics = metrics.NewMetrics(reg)

	// Two bars give a single return: scenarios work, std-based parts do not.
	a, err := Run(context.Background(), steadySeries(t, 2, 0.01), opts)
	require.NoError(t, err)

	assert.True(t, a.Risk.Scenarios.Available)
	assert.False(t, a.Risk.Metrics.Available)
	assert.False(t, a.Risk.MonteCarlo.Available)
	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.ScenarioUnavailable.WithLabelValues("metrics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.ScenarioUnavailable.WithLabelValues("monte_carlo")))
}

func TestRun_Deterministic(t *testing.T) {
	var buf bytes.Buffer
	s := steadySeries(t, 260, 0.0005)

	a, err := Run(context.Background(), s, quietOptions(&buf))
	require.NoError(t, err)
	b, err := Run(context.Background(), s, quietOptions(&buf))
	require.NoError(t, err)

	assert.Equal(t, a.Backtest, b.Backtest)
	assert.Equal(t, a.Signals, b.Signals)
	assert.Equal(t, a.Risk, b.Risk)
}

func TestRun_KeepsCallerRunID(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithRunID(context.Background(), "run-fixed")
	a, err := Run(ctx, steadySeries(t, 30, 0.001), quietOptions(&buf))
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", a.RunID)
	assert.Contains(t, buf.String(), `"run_id":"run-fixed"`)
}

func TestRun_RejectsEmptyAndBadRules(t *testing.T) {
	var buf bytes.Buffer
	empty, err := model.NewPriceSeries("X", nil)
	require.NoError(t, err)
	_, err = Run(context.Background(), empty, quietOptions(&buf))
	assert.ErrorIs(t, err, model.ErrInvalidSeries)

	opts := quietOptions(&buf)
	bad := strategy.DefaultRules()
	bad.BuyRSI = 10
	opts.Rules = &bad
	_, err = Run(context.Background(), steadySeries(t, 5, 0.0), opts)
	assert.Error(t, err)
}

func TestLastPosition(t *testing.T) {
	var buf bytes.Buffer
	a, err := Run(context.Background(), steadySeries(t, 40, 0.001), quietOptions(&buf))
	require.NoError(t, err)
	pos, kind := a.LastPosition()
	assert.Equal(t, 0, pos)
	assert.Equal(t, strategy.KindNone, kind)
}
