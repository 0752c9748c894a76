// Package report condenses an Analysis into a Summary and renders it as
// console text.
package report

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/pipeline"
	"trading-analysisv1/internal/risk"
	"trading-analysisv1/internal/strategy"
)

// SignalCount is how many rows fired one kind.
type SignalCount struct {
	Kind  strategy.Kind `json:"kind"`
	Count int           `json:"count"`
}

// LastRow snapshots the most recent bar.
type LastRow struct {
	Date        time.Time     `json:"date"`
	Close       float64       `json:"close"`
	CloseSmooth model.Float   `json:"close_smooth"`
	RSI         model.Float   `json:"rsi"`
	MACD        model.Float   `json:"macd"`
	Trend       model.Trend   `json:"trend"`
	VolumeRatio model.Float   `json:"volume_ratio"`
	Position    int           `json:"position"`
	Signal      strategy.Kind `json:"signal"`
}

// Summary is the reportable view of one run.
type Summary struct {
	RunID          string        `json:"run_id"`
	Symbol         string        `json:"symbol"`
	From           time.Time     `json:"from"`
	To             time.Time     `json:"to"`
	Rows           int           `json:"rows"`
	Degraded       bool          `json:"degraded"`
	DegradedReason string        `json:"degraded_reason,omitempty"`
	TotalReturn    float64       `json:"total_return"`
	CumulativeRet  float64       `json:"cumulative_return"`
	Sharpe         model.Float   `json:"sharpe"`
	ActiveRows     int           `json:"active_rows"`
	Signals        []SignalCount `json:"signals"`
	Last           LastRow       `json:"last"`
	Risk           risk.Report   `json:"risk"`
	Interpretation []string      `json:"interpretation"`
}

// Summarize builds a Summary. The total return is the plain sum of strategy
// returns; the Sharpe-like ratio is mean/std × √252 and undefined when the
// std is zero or fewer than two returns exist.
func Summarize(a *pipeline.Analysis) Summary {
	fr := a.Frame
	bt := a.Backtest

	s := Summary{
		RunID:          a.RunID,
		Symbol:         a.Symbol,
		From:           a.From,
		To:             a.To,
		Rows:           fr.Len(),
		Degraded:       fr.Smoothing.Degraded,
		DegradedReason: fr.Smoothing.Reason,
		TotalReturn:    bt.Total(),
		CumulativeRet:  bt.Final(),
		Sharpe:         Sharpe(bt.StrategyReturns),
		ActiveRows:     bt.Active(),
		Risk:           a.Risk,
	}
	for _, k := range strategy.Kinds {
		s.Signals = append(s.Signals, SignalCount{Kind: k, Count: a.Signals.Count(k)})
	}

	if n := fr.Len(); n > 0 {
		i := n - 1
		pos, kind := a.LastPosition()
		s.Last = LastRow{
			Date:        fr.Series.Bar(i).Date,
			Close:       fr.Series.Bar(i).Close,
			CloseSmooth: fr.CloseSmooth[i],
			RSI:         fr.RSI[i],
			MACD:        fr.MACD[i],
			Trend:       fr.Trend[i],
			VolumeRatio: fr.VolumeRatio[i],
			Position:    pos,
			Signal:      kind,
		}
	}
	s.Interpretation = Interpret(a.Risk)
	return s
}

// Sharpe is mean/std of the defined returns, annualised by √252.
func Sharpe(returns model.Column) model.Float {
	xs := returns.Defined()
	if len(xs) < 2 {
		return model.Float{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if std == 0 {
		return model.Float{}
	}
	return model.NewFloat(mean / std * math.Sqrt(risk.TradingDays))
}

// Interpret turns the risk metrics into plain-language lines.
func Interpret(r risk.Report) []string {
	if !r.Metrics.Available {
		return nil
	}
	m := r.Metrics
	return []string{
		fmt.Sprintf("There is a 95%% chance that you won't lose more than %s in a day", Money(math.Abs(m.VaR95))),
		fmt.Sprintf("The worst historical daily loss would have been %s", Money(math.Abs(m.MaxHistoricalLoss))),
		fmt.Sprintf("Expected annual volatility is %s", Percent(m.AnnualVolatility)),
	}
}
