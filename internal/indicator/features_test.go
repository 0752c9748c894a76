package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-analysisv1/internal/model"
)

func seriesOf(t *testing.T, bars []model.Bar) *model.PriceSeries {
	t.Helper()
	s, err := model.NewPriceSeries("TEST", bars)
	require.NoError(t, err)
	return s
}

func risingBars(n int, daily float64) []model.Bar {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	price := 100.0
	for i := range bars {
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1000,
		}
		price *= 1 + daily
	}
	return bars
}

func TestPctChange(t *testing.T) {
	out := PctChange(Defined([]float64{100, 110, 99, 0, 5}))
	assert.False(t, out[0].Valid)
	assert.InDelta(t, 0.10, out[1].V, 1e-12)
	assert.InDelta(t, -0.10, out[2].V, 1e-12)
	assert.InDelta(t, -1.0, out[3].V, 1e-12)
	assert.False(t, out[4].Valid, "division by zero is undefined")
}

func TestLogChange(t *testing.T) {
	out := LogChange(Defined([]float64{100, 200, 100}))
	assert.False(t, out[0].Valid)
	assert.InDelta(t, math.Ln2, out[1].V, 1e-12)
	assert.InDelta(t, -math.Ln2, out[2].V, 1e-12)
}

func TestRatio(t *testing.T) {
	out := Ratio(
		model.Column{f(3), f(4), f(1), {}},
		model.Column{f(1.5), {}, f(0), f(2)},
	)
	assert.InDelta(t, 2.0, out[0].V, 1e-12)
	assert.False(t, out[1].Valid)
	assert.False(t, out[2].Valid)
	assert.False(t, out[3].Valid)
}

func TestTrendOf(t *testing.T) {
	short := model.Column{{}, f(2), f(1), f(1)}
	long := model.Column{f(1), f(1), f(2), f(1)}
	got := TrendOf(short, long)
	assert.Equal(t, []model.Trend{model.TrendUndefined, model.TrendUp, model.TrendDown, model.TrendDown}, got)
}

func TestCompute_ColumnsAligned(t *testing.T) {
	s := seriesOf(t, risingBars(250, 0.001))
	smooth := Defined(s.Closes())
	fr := Compute(s, smooth, model.SmoothingStatus{}, DefaultPeriods)

	n := s.Len()
	for name, col := range map[string]model.Column{
		"returns": fr.Returns, "log_returns": fr.LogReturns, "close_smooth": fr.CloseSmooth,
		"volatility": fr.Volatility, "rsi": fr.RSI, "macd": fr.MACD, "ma50": fr.MA50,
		"ma200": fr.MA200, "volume_ratio": fr.VolumeRatio, "hl_range": fr.HighLowRange,
		"price_level": fr.PriceLevel,
	} {
		assert.Len(t, col, n, name)
	}
	assert.Len(t, fr.Trend, n)
	assert.Equal(t, n, fr.Len())
}

func TestCompute_WarmUps(t *testing.T) {
	s := seriesOf(t, risingBars(250, 0.001))
	fr := Compute(s, Defined(s.Closes()), model.SmoothingStatus{}, DefaultPeriods)

	assert.Equal(t, 1, fr.Returns.FirstDefined())
	assert.Equal(t, 20, fr.Volatility.FirstDefined(), "20 defined returns start at row 1")
	assert.Equal(t, 13, fr.RSI.FirstDefined())
	assert.Equal(t, 0, fr.MACD.FirstDefined())
	assert.Equal(t, 49, fr.MA50.FirstDefined())
	assert.Equal(t, 199, fr.MA200.FirstDefined())
	assert.Equal(t, 19, fr.VolumeRatio.FirstDefined())

	for i := 0; i < 199; i++ {
		assert.False(t, fr.Trend[i].Defined(), "row %d", i)
	}
	for i := 199; i < s.Len(); i++ {
		assert.Equal(t, model.TrendUp, fr.Trend[i], "row %d", i)
	}
	// Constant volume → ratio of exactly 1.
	assert.InDelta(t, 1.0, fr.VolumeRatio.Last().V, 1e-12)
}

func TestCompute_PriceFeatures(t *testing.T) {
	day := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	s := seriesOf(t, []model.Bar{
		{Date: day, Open: 10, High: 12, Low: 8, Close: 11, Volume: 100},
		{Date: day.AddDate(0, 0, 1), Open: 10, High: 10, Low: 10, Close: 10, Volume: 100},
	})
	smooth := model.Column{f(10), f(10)}
	fr := Compute(s, smooth, model.SmoothingStatus{}, DefaultPeriods)

	// (12-8)/10 = 0.4 ; (10-8)/(12-8) = 0.5
	assert.InDelta(t, 0.4, fr.HighLowRange[0].V, 1e-12)
	assert.InDelta(t, 0.5, fr.PriceLevel[0].V, 1e-12)

	// High == Low: range is 0, level undefined.
	assert.InDelta(t, 0.0, fr.HighLowRange[1].V, 1e-12)
	assert.False(t, fr.PriceLevel[1].Valid)
}

func TestCompute_UndefinedSmoothPropagates(t *testing.T) {
	s := seriesOf(t, risingBars(100, 0.001))
	smooth := RollingSMA(Defined(s.Closes()), 20)
	status := model.SmoothingStatus{Degraded: true, Reason: "lowess failed"}
	fr := Compute(s, smooth, status, DefaultPeriods)

	assert.True(t, fr.Smoothing.Degraded)
	assert.False(t, fr.HighLowRange[18].Valid)
	assert.True(t, fr.HighLowRange[19].Valid)
	// MA50 over a smooth column that starts at row 19.
	assert.Equal(t, 19+49, fr.MA50.FirstDefined())
}
