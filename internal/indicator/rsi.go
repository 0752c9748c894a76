package indicator

import (
	"fmt"

	"trading-analysisv1/internal/model"
)

// RSI calculates the Relative Strength Index from simple rolling means of
// gains and losses (not Wilder's smoothing).
//
// The first observation has no delta; it enters both windows as a zero
// gain and zero loss, so RSI(14) is first defined on the 14th observation.
type RSI struct {
	period  int
	count   int
	prev    model.Float
	gains   *SMA
	losses  *SMA
	current model.Float
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  NewSMA(period),
		losses: NewSMA(period),
	}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI_%d", r.period) }

func (r *RSI) Update(x model.Float) {
	r.count++

	gain, loss := model.NewFloat(0), model.NewFloat(0)
	switch {
	case r.count == 1:
		// No delta yet: counts as flat.
	case !x.Valid || !r.prev.Valid:
		gain, loss = model.Float{}, model.Float{}
	default:
		delta := x.V - r.prev.V
		if delta > 0 {
			gain = model.NewFloat(delta)
		} else if delta < 0 {
			loss = model.NewFloat(-delta)
		}
	}
	r.prev = x

	r.gains.Update(gain)
	r.losses.Update(loss)

	r.current = rsiFrom(r.gains.Value(), r.losses.Value())
}

// rsiFrom maps mean gain and mean loss to RSI. A flat window (0/0) is
// undefined; zero loss with positive gain is 100.
func rsiFrom(avgGain, avgLoss model.Float) model.Float {
	if !avgGain.Valid || !avgLoss.Valid {
		return model.Float{}
	}
	if avgLoss.V == 0 {
		if avgGain.V == 0 {
			return model.Float{}
		}
		return model.NewFloat(100)
	}
	rs := avgGain.V / avgLoss.V
	return model.NewFloat(100.0 - (100.0 / (1.0 + rs)))
}

func (r *RSI) Value() model.Float { return r.current }
func (r *RSI) Ready() bool        { return r.current.Valid }
