// cmd/analyze fetches daily history for one symbol, runs the signal
// analysis and prints the report. Optionally it publishes the summary to
// Redis. A position on the latest bar raises an alert.
//
// Usage:
//
//	go run ./cmd/analyze --symbol=TSM --source=sqlite
//	go run ./cmd/analyze --source=eodhd --symbol=TSM.US --json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"trading-analysisv1/config"
	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/marketdata"
	"trading-analysisv1/internal/marketdata/provider"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/notification"
	"trading-analysisv1/internal/pipeline"
	"trading-analysisv1/internal/report"
	"trading-analysisv1/internal/store/redis"
	"trading-analysisv1/internal/store/sqlite"
)

// errUsage marks flag and config problems (exit code 2).
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
		fmt.Fprintln(os.Stderr, "analyze:", err)
		os.Exit(1)
	}
}

type options struct {
	asJSON  bool
	publish bool
}

// parseFlags overlays command-line flags on cfg.
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Source, "source", cfg.Source, "history source: sqlite, angel or eodhd")
	fs.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "instrument symbol")
	fs.StringVar(&cfg.StartDate, "from", cfg.StartDate, "first date, YYYY-MM-DD")
	fs.StringVar(&cfg.EndDate, "to", cfg.EndDate, "last date, YYYY-MM-DD (empty = today)")
	fs.Float64Var(&cfg.Investment, "investment", cfg.Investment, "notional for the risk projections")
	fs.Uint64Var(&cfg.MCSeed, "seed", cfg.MCSeed, "Monte Carlo seed")
	fs.IntVar(&cfg.MCPaths, "paths", cfg.MCPaths, "Monte Carlo paths")
	fs.BoolVar(&o.asJSON, "json", false, "print the summary as JSON instead of text")
	fs.BoolVar(&o.publish, "publish", cfg.PublishRedis, "publish the summary to Redis")
	if err := fs.Parse(args); err != nil {
		return o, fmt.Errorf("%w: %v", errUsage, err)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	from, to, _ := cfg.Range()

	log := logger.InitWriter(stderr, "analyze", logger.ParseLevel(cfg.LogLevel))
	log.Info("starting", "config", cfg)

	// ---- Metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus(cfg.Source)
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, health, reg)
		srv.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(sctx)
		}()
	}

	// ---- Source ----
	src, closer, err := provider.Open(cfg)
	if err != nil {
		m.RunsTotal.WithLabelValues("failed").Inc()
		return err
	}
	defer closer.Close()
	if store, ok := src.(*sqlite.Store); ok {
		health.CheckSQLite(ctx, store.DB())
	}

	ctx, runID := logger.NewRun(ctx)
	fetch := &marketdata.Instrumented{Source: src, Name: cfg.Source, Metrics: m, Health: health, Logger: log}
	series, err := fetch.FetchHistory(ctx, cfg.Symbol, from, to)
	if err != nil {
		m.RunsTotal.WithLabelValues("failed").Inc()
		return err
	}

	// ---- Analysis ----
	rules := cfg.Rules()
	analysis, err := pipeline.Run(ctx, series, pipeline.Options{
		Rules:      &rules,
		Investment: cfg.Investment,
		MonteCarlo: cfg.MonteCarlo(),
		Metrics:    m,
		Logger:     log,
	})
	if err != nil {
		m.RunsTotal.WithLabelValues("failed").Inc()
		log.Error("analysis aborted", append(logger.LogWithRun(ctx), "error", err)...)
		return err
	}
	summary := report.Summarize(analysis)

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(summary)
	} else {
		err = report.Render(stdout, summary)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	// ---- Fan-out; failures here do not fail the run ----
	if opts.publish {
		payload, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		publish(ctx, cfg, m, health, payload, log)
	}
	notify(ctx, buildNotifier(cfg, log), summary, m, log)

	health.RecordRun(runID, analysis.FinishedAt, analysis.Degraded())
	m.RunsTotal.WithLabelValues("ok").Inc()
	return nil
}

func publish(ctx context.Context, cfg *config.Config, m *metrics.Metrics, health *metrics.HealthStatus, payload []byte, log *slog.Logger) {
	pub, err := redis.New(redis.WriterConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, m)
	if err != nil {
		m.PublishTotal.WithLabelValues("error").Inc()
		log.Warn("redis unavailable, summary not published", "error", err)
		return
	}
	defer pub.Close()
	health.CheckRedis(ctx, pub.Client())
	if err := pub.Publish(ctx, cfg.Symbol, payload); err != nil {
		log.Warn("publish failed", "error", err)
	}
}

func buildNotifier(cfg *config.Config, log *slog.Logger) notification.Notifier {
	n := notification.Multi{notification.NewLogNotifier(log)}
	if cfg.WebhookURL != "" {
		n = append(n, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.Telegram() {
		n = append(n, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	return n
}

// notify alerts when the latest bar carries a position.
func notify(ctx context.Context, n notification.Notifier, s report.Summary, m *metrics.Metrics, log *slog.Logger) {
	if s.Last.Position == 0 {
		return
	}
	alert := notification.SignalAlert(s.Symbol, s.Last.Date, s.Last.Signal, s.Last.Position, s.Last.Close, s.Last.RSI, s.RunID)
	if err := n.Send(ctx, alert); err != nil {
		m.NotificationsTotal.WithLabelValues("error").Inc()
		log.Warn("alert delivery failed", "error", err)
		return
	}
	m.NotificationsTotal.WithLabelValues("ok").Inc()
}
