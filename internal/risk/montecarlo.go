package risk

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"trading-analysisv1/internal/model"
)

// MonteCarloConfig controls the simulation.
type MonteCarloConfig struct {
	Paths   int    // simulated paths (default 1000)
	Days    int    // trading days per path (default 252)
	Seed    uint64 // base seed; path i draws from (Seed, i)
	Workers int    // concurrent workers; ≤ 0 means GOMAXPROCS
}

// DefaultMonteCarlo is 1000 paths of 252 days.
func DefaultMonteCarlo() MonteCarloConfig {
	return MonteCarloConfig{Paths: 1000, Days: 252, Seed: 42}
}

// MonteCarloResult summarises terminal values across paths.
type MonteCarloResult struct {
	Outcome
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	Paths int     `json:"paths"`
	Days  int     `json:"days"`
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// MonteCarlo draws daily returns from Normal(mean, sample std) of the
// historical returns and compounds each path from investment. Each path has
// its own generator seeded from (cfg.Seed, path index), so the result does
// not depend on cfg.Workers.
func MonteCarlo(ctx context.Context, returns model.Column, investment float64, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if cfg.Paths < 1 || cfg.Days < 1 {
		return MonteCarloResult{}, fmt.Errorf("%w: paths=%d days=%d must be positive", ErrScenarioUnavailable, cfg.Paths, cfg.Days)
	}
	s, err := newSample(returns, investment, 2)
	if err != nil {
		return MonteCarloResult{}, err
	}
	mu, sigma := stat.MeanStdDev(s.sorted, nil)
	if err := finite(mu, sigma); err != nil {
		return MonteCarloResult{}, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.Paths {
		workers = cfg.Paths
	}

	terminal := make([]float64, cfg.Paths)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (cfg.Paths + workers - 1) / workers
	for lo := 0; lo < cfg.Paths; lo += chunk {
		lo, hi := lo, min(lo+chunk, cfg.Paths)
		g.Go(func() error {
			for p := lo; p < hi; p++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				terminal[p] = simulatePath(cfg.Seed, uint64(p), investment, mu, sigma, cfg.Days)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MonteCarloResult{}, fmt.Errorf("%w: %v", ErrScenarioUnavailable, err)
	}

	sort.Float64s(terminal)
	out := MonteCarloResult{
		Outcome: available,
		P25:     percentileSorted(terminal, 25),
		P50:     percentileSorted(terminal, 50),
		P75:     percentileSorted(terminal, 75),
		Paths:   cfg.Paths,
		Days:    cfg.Days,
		Mu:      mu,
		Sigma:   sigma,
	}
	if err := finite(out.P25, out.P50, out.P75); err != nil {
		return MonteCarloResult{}, err
	}
	return out, nil
}

func simulatePath(seed, path uint64, investment, mu, sigma float64, days int) float64 {
	rng := rand.New(rand.NewPCG(seed, path))
	value := investment
	for d := 0; d < days; d++ {
		value *= 1 + mu + sigma*rng.NormFloat64()
	}
	return value
}

// Compound is investment × (1+r)^days by repeated multiplication, the same
// arithmetic a zero-volatility path performs.
func Compound(investment, r float64, days int) float64 {
	v := investment
	for d := 0; d < days; d++ {
		v *= 1 + r
	}
	return v
}

