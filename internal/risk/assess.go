package risk

import (
	"context"
	"log/slog"

	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/model"
)

// Report bundles the three projections of one run.
type Report struct {
	Investment float64          `json:"investment"`
	Scenarios  Scenarios        `json:"scenarios"`
	Metrics    Metrics          `json:"metrics"`
	MonteCarlo MonteCarloResult `json:"monte_carlo"`
}

// Assessor runs every projection and converts failures into unavailable
// outcomes. It never returns an error.
type Assessor struct {
	Investment float64
	MonteCarlo MonteCarloConfig
	Logger     *slog.Logger
	// OnUnavailable is called once per failed component ("scenarios",
	// "metrics", "monte_carlo"). Optional.
	OnUnavailable func(component string)
}

// Assess projects returns forward. Each component fails independently.
func (a *Assessor) Assess(ctx context.Context, returns model.Column) Report {
	rep := Report{Investment: a.Investment}

	sc, err := HistoricalScenarios(returns, a.Investment)
	if err != nil {
		sc = Scenarios{Outcome: a.unavailable(ctx, "scenarios", err)}
	}
	rep.Scenarios = sc

	m, err := ComputeMetrics(returns, a.Investment)
	if err != nil {
		m = Metrics{Outcome: a.unavailable(ctx, "metrics", err)}
	}
	rep.Metrics = m

	mc, err := MonteCarlo(ctx, returns, a.Investment, a.MonteCarlo)
	if err != nil {
		mc = MonteCarloResult{Outcome: a.unavailable(ctx, "monte_carlo", err)}
	}
	rep.MonteCarlo = mc

	return rep
}

func (a *Assessor) unavailable(ctx context.Context, component string, err error) Outcome {
	log := a.Logger
	if log == nil {
		log = slog.Default()
	}
	args := append([]any{slog.String("component", component), slog.String("error", err.Error())}, logger.LogWithRun(ctx)...)
	log.Warn("risk projection unavailable", args...)
	if a.OnUnavailable != nil {
		a.OnUnavailable(component)
	}
	return Unavailable(err)
}
