package model

// Trend is the MA50/MA200 regime of a row.
type Trend int8

const (
	TrendUndefined Trend = 0
	TrendUp        Trend = 1
	TrendDown      Trend = -1
)

// Defined reports whether both moving averages existed for the row.
func (t Trend) Defined() bool { return t != TrendUndefined }

// Uptrend resolves an undefined trend as "not uptrend".
func (t Trend) Uptrend() bool { return t == TrendUp }

// Downtrend resolves an undefined trend as "not downtrend".
func (t Trend) Downtrend() bool { return t == TrendDown }

// SmoothingStatus records whether close_smooth came from the fallback.
type SmoothingStatus struct {
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// FeatureFrame is a PriceSeries with its derived indicator columns.
// Every column has Series.Len() rows.
type FeatureFrame struct {
	Series *PriceSeries

	Returns      Column
	LogReturns   Column
	CloseSmooth  Column
	Volatility   Column
	RSI          Column
	MACD         Column
	MA50         Column
	MA200        Column
	Trend        []Trend
	VolumeRatio  Column
	HighLowRange Column
	PriceLevel   Column

	Smoothing SmoothingStatus
}

// Len returns the number of rows.
func (f *FeatureFrame) Len() int { return f.Series.Len() }
