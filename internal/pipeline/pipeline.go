// Package pipeline runs the analysis stages over one PriceSeries:
// smoothing → indicators → signals → backtest, and indicators → risk.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trading-analysisv1/internal/backtest"
	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/risk"
	"trading-analysisv1/internal/smoothing"
	"trading-analysisv1/internal/strategy"
)

// Options configures a run. Zero fields take defaults.
type Options struct {
	Smoother   *smoothing.Smoother
	Periods    *indicator.Periods
	Rules      *strategy.Rules
	Investment float64
	MonteCarlo risk.MonteCarloConfig
	Metrics    *metrics.Metrics // optional
	Logger     *slog.Logger     // optional; slog.Default()
}

// DefaultInvestment is the notional used by the risk stage.
const DefaultInvestment = 10000

// Analysis is everything one run produced.
type Analysis struct {
	RunID      string              `json:"run_id"`
	Symbol     string              `json:"symbol"`
	From       time.Time           `json:"from"`
	To         time.Time           `json:"to"`
	Frame      *model.FeatureFrame `json:"-"`
	Signals    *strategy.SignalSet `json:"-"`
	Backtest   *backtest.Result    `json:"-"`
	Risk       risk.Report         `json:"risk"`
	Rules      strategy.Rules      `json:"rules"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Degraded reports whether smoothing fell back to the SMA.
func (a *Analysis) Degraded() bool { return a.Frame.Smoothing.Degraded }

// LastPosition is the position on the most recent bar.
func (a *Analysis) LastPosition() (int, strategy.Kind) {
	n := len(a.Backtest.Positions)
	if n == 0 {
		return 0, strategy.KindNone
	}
	return a.Backtest.Positions[n-1], a.Backtest.Winning[n-1]
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Smoother == nil {
		out.Smoother = smoothing.New()
	}
	if out.Periods == nil {
		p := indicator.DefaultPeriods
		out.Periods = &p
	}
	if out.Rules == nil {
		r := strategy.DefaultRules()
		out.Rules = &r
	}
	if out.Investment == 0 {
		out.Investment = DefaultInvestment
	}
	if out.MonteCarlo.Paths == 0 && out.MonteCarlo.Days == 0 {
		seed, workers := out.MonteCarlo.Seed, out.MonteCarlo.Workers
		out.MonteCarlo = risk.DefaultMonteCarlo()
		if seed != 0 {
			out.MonteCarlo.Seed = seed
		}
		out.MonteCarlo.Workers = workers
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Run executes every stage. Smoothing and risk failures degrade the result
// and are logged; only invalid input or an internal stage failure returns
// an error.
func Run(ctx context.Context, series *model.PriceSeries, opts Options) (*Analysis, error) {
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("pipeline: %w: no bars", model.ErrInvalidSeries)
	}
	o := opts.withDefaults()
	if err := o.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if logger.RunID(ctx) == "" {
		ctx, _ = logger.NewRun(ctx)
	}
	log := o.Logger.With(logger.LogWithRun(ctx)...)
	m := o.Metrics

	log.Info("analysis started",
		slog.String("symbol", series.Symbol()),
		slog.Int("rows", series.Len()),
		slog.String("from", series.First().Format(model.DateLayout)),
		slog.String("to", series.Last().Format(model.DateLayout)),
	)

	// ── Smoothing ──
	start := time.Now()
	smooth := o.Smoother.Smooth(series.Closes())
	m.ObserveStage("smoothing", start)
	if smooth.Status.Degraded {
		log.Warn("lowess smoothing failed, using SMA fallback",
			slog.Int("window", o.Smoother.FallbackWindow),
			slog.String("reason", smooth.Status.Reason),
		)
		if m != nil {
			m.SmoothingFallbacks.Inc()
		}
	}

	// ── Indicators ──
	start = time.Now()
	frame := indicator.Compute(series, smooth.Values, smooth.Status, *o.Periods)
	m.ObserveStage("indicators", start)

	// ── Signals ──
	start = time.Now()
	signals := strategy.Evaluate(frame, *o.Rules)
	m.ObserveStage("signals", start)

	// ── Backtest ──
	start = time.Now()
	bt, err := backtest.Run(frame, signals)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	m.ObserveStage("backtest", start)

	// ── Risk ──
	start = time.Now()
	assessor := &risk.Assessor{
		Investment: o.Investment,
		MonteCarlo: o.MonteCarlo,
		Logger:     o.Logger,
	}
	if m != nil {
		assessor.OnUnavailable = func(component string) {
			m.ScenarioUnavailable.WithLabelValues(component).Inc()
		}
	}
	report := assessor.Assess(ctx, frame.Returns)
	m.ObserveStage("risk", start)

	a := &Analysis{
		RunID:      logger.RunID(ctx),
		Symbol:     series.Symbol(),
		From:       series.First(),
		To:         series.Last(),
		Frame:      frame,
		Signals:    signals,
		Backtest:   bt,
		Risk:       report,
		Rules:      *o.Rules,
		FinishedAt: time.Now().UTC(),
	}

	pos, kind := a.LastPosition()
	if m != nil {
		m.RowsProcessed.Add(float64(series.Len()))
		for _, k := range strategy.Kinds {
			m.SignalsTotal.WithLabelValues(k.String()).Add(float64(signals.Count(k)))
		}
		m.LastPosition.Set(float64(pos))
	}

	log.Info("analysis finished",
		slog.Bool("degraded", a.Degraded()),
		slog.Int("active_rows", bt.Active()),
		slog.Float64("total_return", bt.Total()),
		slog.Int("last_position", pos),
		slog.String("last_signal", kind.String()),
	)
	return a, nil
}
