// Package strategy evaluates rule-based trading signals over a FeatureFrame.
//
// Each row is tested against four independent rules (strong buy, buy, sell,
// strong sell). Rows matching none carry no signal.
package strategy

import (
	"fmt"

	"trading-analysisv1/internal/model"
)

// Kind is a signal kind. Declaration order is the order in which positions
// are assigned; a later kind overwrites an earlier one on the same row.
type Kind int

const (
	KindNone Kind = iota
	KindStrongBuy
	KindBuy
	KindSell
	KindStrongSell
)

// Kinds lists the signal kinds in overwrite order, excluding KindNone.
var Kinds = []Kind{KindStrongBuy, KindBuy, KindSell, KindStrongSell}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStrongBuy:
		return "strong_buy"
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	case KindStrongSell:
		return "strong_sell"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Position is the exposure a kind maps to.
func (k Kind) Position() int {
	switch k {
	case KindStrongBuy:
		return 2
	case KindBuy:
		return 1
	case KindSell:
		return -1
	case KindStrongSell:
		return -2
	default:
		return 0
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// SignalSet holds one boolean mask per kind, aligned with the frame rows.
type SignalSet struct {
	StrongBuy  []bool
	Buy        []bool
	Sell       []bool
	StrongSell []bool
}

// Len returns the number of rows.
func (s *SignalSet) Len() int { return len(s.Buy) }

// Mask returns the mask for k, or nil for KindNone.
func (s *SignalSet) Mask(k Kind) []bool {
	switch k {
	case KindStrongBuy:
		return s.StrongBuy
	case KindBuy:
		return s.Buy
	case KindSell:
		return s.Sell
	case KindStrongSell:
		return s.StrongSell
	default:
		return nil
	}
}

// Count returns how many rows fire k.
func (s *SignalSet) Count(k Kind) int {
	n := 0
	for _, on := range s.Mask(k) {
		if on {
			n++
		}
	}
	return n
}

// Evaluate applies rules to every row of frame. Any undefined input makes
// the affected condition false.
func Evaluate(frame *model.FeatureFrame, rules Rules) *SignalSet {
	n := frame.Len()
	set := &SignalSet{
		StrongBuy:  make([]bool, n),
		Buy:        make([]bool, n),
		Sell:       make([]bool, n),
		StrongSell: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		rsi := frame.RSI[i]
		trend := frame.Trend[i]
		surge := frame.VolumeRatio[i].Greater(rules.VolumeSurge)

		set.StrongBuy[i] = rsi.Less(rules.StrongBuyRSI) && trend.Uptrend() && surge
		set.Buy[i] = rsi.Less(rules.BuyRSI) && trend.Uptrend()
		set.Sell[i] = rsi.Greater(rules.SellRSI) && trend.Downtrend()
		set.StrongSell[i] = rsi.Greater(rules.StrongSellRSI) && trend.Downtrend() && surge
	}
	return set
}
