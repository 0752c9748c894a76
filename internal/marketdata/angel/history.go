package angel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trading-analysisv1/internal/marketdata"
	"trading-analysisv1/internal/model"
)

const (
	interval       = "ONE_DAY"
	maxDaysPerCall = 2000 // ONE_DAY request span limit
)

var _ model.HistorySource = (*Client)(nil)

type scrip struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

// ResolveToken maps a trading symbol to its exchange token. Numeric input
// is taken to be a token already. Exact matches win over the -EQ series,
// which wins over the first result.
func (c *Client) ResolveToken(ctx context.Context, symbol string) (string, error) {
	if isDigits(symbol) {
		return symbol, nil
	}
	c.mu.Lock()
	tok, ok := c.tokens[symbol]
	c.mu.Unlock()
	if ok {
		return tok, nil
	}

	var found []scrip
	params := map[string]string{"exchange": c.cfg.Exchange, "searchscrip": symbol}
	if err := c.post(ctx, "api.search.scrip", params, &found); err != nil {
		return "", fmt.Errorf("angel search %s: %w", symbol, err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("angel search %s: no scrip on %s", symbol, c.cfg.Exchange)
	}

	pick := found[0]
	for _, s := range found {
		if strings.EqualFold(s.TradingSymbol, symbol) {
			pick = s
			break
		}
		if strings.EqualFold(s.TradingSymbol, symbol+"-EQ") {
			pick = s
		}
	}

	c.mu.Lock()
	c.tokens[symbol] = pick.SymbolToken
	c.mu.Unlock()
	return pick.SymbolToken, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// candles fetches one window of daily candles for token.
func (c *Client) candles(ctx context.Context, token string, w marketdata.Window) ([]model.Bar, error) {
	params := map[string]string{
		"exchange":    c.cfg.Exchange,
		"symboltoken": token,
		"interval":    interval,
		"fromdate":    w.From.Format(model.DateLayout) + " " + sessionStart,
		"todate":      w.To.Format(model.DateLayout) + " " + sessionEnd,
	}
	var rows [][]any
	if err := c.post(ctx, "api.candle.data", params, &rows); err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		b, err := parseCandle(r)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// parseCandle reads [timestamp, open, high, low, close, volume]. The
// timestamp is exchange-local; the bar keeps its calendar date.
func parseCandle(r []any) (model.Bar, error) {
	if len(r) < 6 {
		return model.Bar{}, fmt.Errorf("angel: candle has %d fields, want 6", len(r))
	}
	ts, ok := r[0].(string)
	if !ok {
		return model.Bar{}, fmt.Errorf("angel: candle timestamp %v is not a string", r[0])
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return model.Bar{}, fmt.Errorf("angel: candle timestamp: %w", err)
	}

	var v [5]float64
	for i := range v {
		f, ok := r[i+1].(float64)
		if !ok {
			return model.Bar{}, fmt.Errorf("angel: candle field %d is %T", i+1, r[i+1])
		}
		v[i] = f
	}
	return model.Bar{
		Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Open:   v[0],
		High:   v[1],
		Low:    v[2],
		Close:  v[3],
		Volume: int64(v[4]),
	}, nil
}

// FetchHistory downloads daily candles for symbol in request-sized windows.
// A zero to fetches through the last day whose candle is complete.
func (c *Client) FetchHistory(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	if to.IsZero() {
		to = lastCompleteDay(c.now())
	}
	if err := c.ensureSession(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	token, err := c.ResolveToken(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}

	var bars []model.Bar
	windows := marketdata.Windows(from, to, maxDaysPerCall)
	for i, w := range windows {
		chunk, err := c.candles(ctx, token, w)
		if err != nil {
			return nil, fmt.Errorf("%w: angel candles %s %s..%s: %w", model.ErrDataUnavailable,
				symbol, w.From.Format(model.DateLayout), w.To.Format(model.DateLayout), err)
		}
		c.log.Debug("fetched window", "symbol", symbol, "window", i+1, "of", len(windows), "rows", len(chunk))
		bars = append(bars, chunk...)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: angel returned no candles for %s", model.ErrDataUnavailable, symbol)
	}
	return model.NewPriceSeries(symbol, marketdata.Dedupe(bars))
}
