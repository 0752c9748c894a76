package indicator

import (
	"math"

	"trading-analysisv1/internal/model"
)

// Periods fixes the indicator windows used by Compute.
type Periods struct {
	Volatility int
	RSI        int
	MACDFast   int
	MACDSlow   int
	MAShort    int
	MALong     int
	VolumeAvg  int
}

// DefaultPeriods are the standard windows: 20-day volatility, RSI(14),
// MACD(12,26), MA50/MA200 and a 20-day volume average.
var DefaultPeriods = Periods{
	Volatility: 20,
	RSI:        14,
	MACDFast:   12,
	MACDSlow:   26,
	MAShort:    50,
	MALong:     200,
	VolumeAvg:  20,
}

// Compute derives every indicator column for series. closeSmooth must have
// one row per bar; status is recorded on the frame as is.
func Compute(series *model.PriceSeries, closeSmooth model.Column, status model.SmoothingStatus, p Periods) *model.FeatureFrame {
	closes := Defined(series.Closes())
	n := series.Len()

	f := &model.FeatureFrame{
		Series:      series,
		CloseSmooth: closeSmooth,
		Smoothing:   status,
	}

	f.Returns = PctChange(closes)
	f.LogReturns = LogChange(closes)
	f.Volatility = RollingStd(f.Returns, p.Volatility)
	f.RSI = Run(NewRSI(p.RSI), closes)
	f.MACD = MACD(closes, p.MACDFast, p.MACDSlow)
	f.MA50 = RollingSMA(closeSmooth, p.MAShort)
	f.MA200 = RollingSMA(closeSmooth, p.MALong)
	f.Trend = TrendOf(f.MA50, f.MA200)

	volumes := Defined(series.Volumes())
	f.VolumeRatio = Ratio(volumes, RollingSMA(volumes, p.VolumeAvg))

	f.HighLowRange = model.NewColumn(n)
	f.PriceLevel = model.NewColumn(n)
	for i := 0; i < n; i++ {
		b := series.Bar(i)
		cs := closeSmooth[i]
		if !cs.Valid {
			continue
		}
		if cs.V != 0 {
			f.HighLowRange[i] = model.NewFloat((b.High - b.Low) / cs.V)
		}
		if b.High != b.Low {
			f.PriceLevel[i] = model.NewFloat((cs.V - b.Low) / (b.High - b.Low))
		}
	}
	return f
}

// PctChange is x[t]/x[t-1] - 1. Row 0 is undefined.
func PctChange(in model.Column) model.Column {
	out := model.NewColumn(len(in))
	for i := 1; i < len(in); i++ {
		if in[i].Valid && in[i-1].Valid && in[i-1].V != 0 {
			out[i] = model.NewFloat(in[i].V/in[i-1].V - 1)
		}
	}
	return out
}

// LogChange is ln(x[t]/x[t-1]). Row 0 is undefined.
func LogChange(in model.Column) model.Column {
	out := model.NewColumn(len(in))
	for i := 1; i < len(in); i++ {
		if in[i].Valid && in[i-1].Valid && in[i-1].V != 0 {
			out[i] = model.NewFloat(math.Log(in[i].V / in[i-1].V))
		}
	}
	return out
}

// Ratio divides num by den row by row. Division by zero is undefined.
func Ratio(num, den model.Column) model.Column {
	out := model.NewColumn(len(num))
	for i := range num {
		if num[i].Valid && den[i].Valid && den[i].V != 0 {
			out[i] = model.NewFloat(num[i].V / den[i].V)
		}
	}
	return out
}

// TrendOf is +1 where short > long, -1 where both are defined otherwise,
// and undefined while either average is missing. This departs from an
// always-decisive up/down rule, which would report -1 during warm-up and let
// sells fire there.
func TrendOf(short, long model.Column) []model.Trend {
	out := make([]model.Trend, len(short))
	for i := range short {
		if !short[i].Valid || !long[i].Valid {
			continue
		}
		if short[i].V > long[i].V {
			out[i] = model.TrendUp
		} else {
			out[i] = model.TrendDown
		}
	}
	return out
}
