package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"trading-analysisv1/internal/model"
)

// Money formats v as $1,234.56 (negative as -$1,234.56), rounding half
// away from zero to cents.
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, cents, _ := strings.Cut(s, ".")
	return sign + "$" + group(whole) + "." + cents
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Percent formats a fraction as a two-decimal percentage.
func Percent(frac float64) string {
	return decimal.NewFromFloat(frac).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

func optional(f model.Float, format string) string {
	if !f.Valid {
		return "n/a"
	}
	return fmt.Sprintf(format, f.V)
}

func trendLabel(t model.Trend) string {
	switch t {
	case model.TrendUp:
		return "up"
	case model.TrendDown:
		return "down"
	default:
		return "n/a"
	}
}

// Render writes the console report.
func Render(w io.Writer, s Summary) error {
	p := &printer{w: w}

	p.line("")
	p.line("╔══════════════════════════════════════════════╗")
	p.line("║            SIGNAL ANALYSIS COMPLETE          ║")
	p.line("╠══════════════════════════════════════════════╣")
	p.f("║  Symbol:          %-26s ║\n", s.Symbol)
	p.f("║  Range:           %-26s ║\n", s.From.Format(model.DateLayout)+" → "+s.To.Format(model.DateLayout))
	p.f("║  Bars:            %-26d ║\n", s.Rows)
	p.f("║  Run:             %-26s ║\n", truncate(s.RunID, 26))
	p.line("╚══════════════════════════════════════════════╝")

	if s.Degraded {
		p.line("")
		p.f("WARNING: smoothing degraded, SMA(20) fallback used (%s)\n", s.DegradedReason)
	}

	p.line("")
	p.line("Strategy Performance Metrics:")
	p.f("  Total Returns: %s\n", Percent(s.TotalReturn))
	p.f("  Compounded:    %s\n", Percent(s.CumulativeRet))
	p.f("  Sharpe Ratio:  %s\n", optional(s.Sharpe, "%.2f"))
	p.f("  Active days:   %d\n", s.ActiveRows)

	p.line("")
	p.line("Signals:")
	for _, c := range s.Signals {
		p.f("  %-12s %d\n", c.Kind.String(), c.Count)
	}

	p.line("")
	p.f("Latest bar (%s):\n", s.Last.Date.Format(model.DateLayout))
	p.f("  Close %.2f | Smooth %s | RSI %s | MACD %s | Trend %s | Vol ratio %s\n",
		s.Last.Close,
		optional(s.Last.CloseSmooth, "%.2f"),
		optional(s.Last.RSI, "%.1f"),
		optional(s.Last.MACD, "%.3f"),
		trendLabel(s.Last.Trend),
		optional(s.Last.VolumeRatio, "%.2f"),
	)
	p.f("  Position %d (%s)\n", s.Last.Position, s.Last.Signal)

	r := s.Risk
	p.line("")
	p.f("Investment Analysis for %s\n", Money(r.Investment))

	p.line("")
	p.line("Projected Scenarios:")
	if r.Scenarios.Available {
		p.f("  Conservative: %s\n", Money(r.Scenarios.Conservative))
		p.f("  Expected:     %s\n", Money(r.Scenarios.Expected))
		p.f("  Optimistic:   %s\n", Money(r.Scenarios.Optimistic))
	} else {
		p.f("  unavailable: %s\n", r.Scenarios.Reason)
	}

	p.line("")
	p.line("Risk Assessment:")
	if r.Metrics.Available {
		p.f("  Maximum Historical Loss: %s\n", Money(r.Metrics.MaxHistoricalLoss))
		p.f("  95%% Value at Risk:       %s\n", Money(r.Metrics.VaR95))
		p.f("  Annual Volatility:       %s\n", Percent(r.Metrics.AnnualVolatility))
	} else {
		p.f("  unavailable: %s\n", r.Metrics.Reason)
	}

	p.line("")
	if r.MonteCarlo.Available {
		p.f("Monte Carlo (%d paths × %d days):\n", r.MonteCarlo.Paths, r.MonteCarlo.Days)
		p.f("  P25: %s\n", Money(r.MonteCarlo.P25))
		p.f("  P50: %s\n", Money(r.MonteCarlo.P50))
		p.f("  P75: %s\n", Money(r.MonteCarlo.P75))
	} else {
		p.line("Monte Carlo:")
		p.f("  unavailable: %s\n", r.MonteCarlo.Reason)
	}

	if len(s.Interpretation) > 0 {
		p.line("")
		p.line("Interpretation:")
		for _, l := range s.Interpretation {
			p.f("  - %s\n", l)
		}
	}
	return p.err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) f(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) { p.f("%s\n", s) }
