package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-analysisv1/config"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/report"
	"trading-analysisv1/internal/store/sqlite"
	"trading-analysisv1/internal/strategy"
)

// seedStore writes n business-ish days of a drifting sine wave.
func seedStore(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := sqlite.New(sqlite.Config{DBPath: path})
	require.NoError(t, err)
	defer s.Close()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + 0.05*float64(i) + 8*math.Sin(float64(i)/9)
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c - 0.3,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: int64(10000 + 3000*math.Sin(float64(i)/4)),
		}
	}
	_, err = s.WriteBars(context.Background(), "TEST", bars)
	require.NoError(t, err)
	return path
}

func setEnv(t *testing.T, dbPath string) {
	t.Setenv("SOURCE", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("SYMBOL", "TEST")
	t.Setenv("START_DATE", "2020-01-01")
	t.Setenv("END_DATE", "")
	t.Setenv("MC_PATHS", "100")
	t.Setenv("PUBLISH_REDIS", "false")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("WEBHOOK_URL", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
}

func TestRun_JSON(t *testing.T) {
	setEnv(t, seedStore(t, 300))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-json"}, &out, io.Discard))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "TEST", got["symbol"])
	assert.Equal(t, float64(300), got["rows"])
	assert.NotEmpty(t, got["run_id"])
	assert.Len(t, got["signals"], 4)
}

func TestRun_Text(t *testing.T) {
	setEnv(t, seedStore(t, 300))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-seed", "7"}, &out, io.Discard))
	assert.Contains(t, out.String(), "SIGNAL ANALYSIS COMPLETE")
	assert.Contains(t, out.String(), "TEST")
}

func TestRun_Errors(t *testing.T) {
	setEnv(t, seedStore(t, 10))

	err := run(context.Background(), []string{"-nope"}, io.Discard, io.Discard)
	assert.ErrorIs(t, err, errUsage)

	err = run(context.Background(), []string{"-source", "csv"}, io.Discard, io.Discard)
	assert.ErrorIs(t, err, errUsage)

	err = run(context.Background(), []string{"-symbol", "MISSING"}, io.Discard, io.Discard)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestNotify(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := &config.Config{WebhookURL: srv.URL}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	n := buildNotifier(cfg, log)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	flat := report.Summary{Symbol: "TEST"}
	notify(context.Background(), n, flat, m, log)
	assert.Equal(t, 0, hits, "no position, no alert")

	s := report.Summary{Symbol: "TEST", Last: report.LastRow{
		Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 10, Position: -2, Signal: strategy.KindStrongSell,
	}}
	notify(context.Background(), n, s, m, log)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("ok")))
}
