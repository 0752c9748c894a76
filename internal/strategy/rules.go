package strategy

import "fmt"

// Rules holds the signal thresholds.
type Rules struct {
	StrongBuyRSI  float64 // strong buy below this RSI
	BuyRSI        float64 // buy below this RSI
	SellRSI       float64 // sell above this RSI
	StrongSellRSI float64 // strong sell above this RSI
	VolumeSurge   float64 // volume ratio above this counts as a surge
}

// DefaultRules: strong buy < 30, buy < 40, sell > 60, strong sell > 70,
// volume surge > 1.5.
func DefaultRules() Rules {
	return Rules{
		StrongBuyRSI:  30,
		BuyRSI:        40,
		SellRSI:       60,
		StrongSellRSI: 70,
		VolumeSurge:   1.5,
	}
}

// Validate checks the thresholds are ordered and inside the RSI range.
func (r Rules) Validate() error {
	for name, v := range map[string]float64{
		"strong_buy_rsi":  r.StrongBuyRSI,
		"buy_rsi":         r.BuyRSI,
		"sell_rsi":        r.SellRSI,
		"strong_sell_rsi": r.StrongSellRSI,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("strategy: %s %.2f outside [0,100]", name, v)
		}
	}
	if r.StrongBuyRSI > r.BuyRSI {
		return fmt.Errorf("strategy: strong_buy_rsi %.2f above buy_rsi %.2f", r.StrongBuyRSI, r.BuyRSI)
	}
	if r.SellRSI > r.StrongSellRSI {
		return fmt.Errorf("strategy: sell_rsi %.2f above strong_sell_rsi %.2f", r.SellRSI, r.StrongSellRSI)
	}
	if r.VolumeSurge < 0 {
		return fmt.Errorf("strategy: volume_surge %.2f is negative", r.VolumeSurge)
	}
	return nil
}
