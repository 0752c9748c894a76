// cmd/backfill downloads daily history from a remote provider into the
// local SQLite store so cmd/analyze can run offline with SOURCE=sqlite.
//
// Usage:
//
//	go run ./cmd/backfill --source=eodhd --symbol=TSM.US --as=TSM
//	go run ./cmd/backfill --source=angel --symbol=SBIN-EQ --incremental
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trading-analysisv1/config"
	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/marketdata"
	"trading-analysisv1/internal/marketdata/provider"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/store/sqlite"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "backfill:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Source, "source", cfg.Source, "remote provider: angel or eodhd")
	fs.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "provider symbol")
	fs.StringVar(&cfg.StartDate, "from", cfg.StartDate, "first date, YYYY-MM-DD")
	fs.StringVar(&cfg.EndDate, "to", cfg.EndDate, "last date, YYYY-MM-DD (empty = today)")
	fs.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite database path")
	as := fs.String("as", "", "store under this symbol (default: --symbol)")
	incremental := fs.Bool("incremental", false, "start after the last stored date")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if cfg.Source == config.SourceSQLite {
		return fmt.Errorf("%w: backfill needs a remote --source (angel or eodhd)", errUsage)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	storeAs := cfg.Symbol
	if *as != "" {
		storeAs = *as
	}
	from, to, _ := cfg.Range()

	log := logger.InitWriter(stderr, "backfill", logger.ParseLevel(cfg.LogLevel))
	m := metrics.NewMetrics(prometheus.NewRegistry())

	remote, closer, err := provider.Remote(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := sqlite.New(sqlite.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		return err
	}
	defer store.Close()

	if *incremental {
		last, err := store.LastDate(ctx, storeAs)
		if err != nil {
			return fmt.Errorf("read last stored date: %w", err)
		}
		if !last.Before(from) {
			from = last.AddDate(0, 0, 1)
		}
	}
	end := to
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if from.After(end) {
		log.Info("store is up to date", "symbol", storeAs, "from", from.Format(model.DateLayout))
		fmt.Fprintf(stdout, "%s is up to date\n", storeAs)
		return nil
	}

	started := time.Now()
	src := &marketdata.Instrumented{Source: remote, Name: cfg.Source, Metrics: m, Logger: log}
	series, err := src.FetchHistory(ctx, cfg.Symbol, from, to)
	if err != nil {
		return err
	}

	n, err := store.WriteBars(ctx, storeAs, series.Bars())
	if err != nil {
		return err
	}
	m.BarsStored.Add(float64(n))
	log.Info("backfill complete", "symbol", storeAs, "rows", n, "took", time.Since(started))

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "╔══════════════════════════════════════╗")
	fmt.Fprintln(stdout, "║        BACKFILL COMPLETE             ║")
	fmt.Fprintln(stdout, "╠══════════════════════════════════════╣")
	fmt.Fprintf(stdout, "║  Symbol:        %-20s ║\n", storeAs)
	fmt.Fprintf(stdout, "║  Source:        %-20s ║\n", cfg.Source)
	fmt.Fprintf(stdout, "║  Rows written:  %-20d ║\n", n)
	fmt.Fprintf(stdout, "║  First:         %-20s ║\n", series.First().Format(model.DateLayout))
	fmt.Fprintf(stdout, "║  Last:          %-20s ║\n", series.Last().Format(model.DateLayout))
	fmt.Fprintln(stdout, "╚══════════════════════════════════════╝")
	return nil
}
