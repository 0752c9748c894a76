package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/pipeline"
	"trading-analysisv1/internal/risk"
	"trading-analysisv1/internal/strategy"
)

func TestMoney(t *testing.T) {
	cases := map[float64]string{
		0:          "$0.00",
		5.005:      "$5.01",
		999.994:    "$999.99",
		1234.5:     "$1,234.50",
		10000:      "$10,000.00",
		1234567.89: "$1,234,567.89",
		-250.126:   "-$250.13",
		-0.001:     "$0.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, Money(in), "input %v", in)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12.35%", Percent(0.123456))
	assert.Equal(t, "-3.00%", Percent(-0.03))
	assert.Equal(t, "0.00%", Percent(0))
}

func TestSharpe(t *testing.T) {
	col := func(xs ...float64) model.Column {
		c := model.NewColumn(len(xs))
		for i, x := range xs {
			c[i] = model.NewFloat(x)
		}
		return c
	}

	xs := []float64{0.01, -0.005, 0.02, 0.0}
	got := Sharpe(append(col(xs...), model.Float{}))
	require.True(t, got.Valid)

	mean := (0.01 - 0.005 + 0.02) / 4
	ss := 0.0
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	want := mean / math.Sqrt(ss/3) * math.Sqrt(252)
	assert.InDelta(t, want, got.V, 1e-12)

	assert.False(t, Sharpe(col(0.01)).Valid)
	assert.False(t, Sharpe(col(0, 0, 0)).Valid, "zero std")
}

func TestInterpret(t *testing.T) {
	lines := Interpret(risk.Report{Metrics: risk.Metrics{
		Outcome:           risk.Outcome{Available: true},
		MaxHistoricalLoss: -1500,
		VaR95:             -320.456,
		AnnualVolatility:  0.4,
	}})
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "$320.46")
	assert.Contains(t, lines[1], "$1,500.00")
	assert.Contains(t, lines[2], "40.00%")

	assert.Nil(t, Interpret(risk.Report{}))
}

func analysisFor(t *testing.T, n int) *pipeline.Analysis {
	t.Helper()
	start := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	p := 100.0
	for i := range bars {
		// Up three days, down two: gives both gains and losses.
		if i%5 < 3 {
			p *= 1.01
		} else {
			p *= 0.985
		}
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: p, High: p * 1.01, Low: p * 0.99, Close: p, Volume: int64(1000 + 10*(i%7))}
	}
	s, err := model.NewPriceSeries("TSM", bars)
	require.NoError(t, err)

	a, err := pipeline.Run(context.Background(), s, pipeline.Options{
		MonteCarlo: risk.MonteCarloConfig{Paths: 50, Days: 10, Seed: 5},
		Logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return a
}

func TestSummarize(t *testing.T) {
	a := analysisFor(t, 260)
	s := Summarize(a)

	assert.Equal(t, "TSM", s.Symbol)
	assert.Equal(t, 260, s.Rows)
	assert.Equal(t, a.Backtest.Total(), s.TotalReturn)
	require.Len(t, s.Signals, 4)
	assert.Equal(t, strategy.KindStrongBuy, s.Signals[0].Kind)
	assert.Equal(t, a.Signals.Count(strategy.KindBuy), s.Signals[1].Count)
	assert.Equal(t, a.To, s.Last.Date)
	assert.True(t, s.Last.RSI.Valid)
	assert.Len(t, s.Interpretation, 3)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"strong_buy"`)
}

func TestRender(t *testing.T) {
	s := Summarize(analysisFor(t, 260))
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s))

	out := buf.String()
	for _, want := range []string{
		"SIGNAL ANALYSIS COMPLETE",
		"Total Returns:",
		"Sharpe Ratio:",
		"Investment Analysis for $10,000.00",
		"Conservative:",
		"95% Value at Risk:",
		"Monte Carlo (50 paths × 10 days):",
		"Interpretation:",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "WARNING")
}

func TestRender_DegradedAndUnavailable(t *testing.T) {
	s := Summarize(analysisFor(t, 2))
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s))

	out := buf.String()
	assert.Contains(t, out, "WARNING: smoothing degraded")
	assert.Contains(t, out, "unavailable:")
	assert.Contains(t, out, "Sharpe Ratio:  n/a")
}
