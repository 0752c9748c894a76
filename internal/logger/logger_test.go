package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	require.NotNil(t, logger)
}

func TestInitWriter_EmitsServiceAndRun(t *testing.T) {
	var buf bytes.Buffer
	log := InitWriter(&buf, "analyze", slog.LevelInfo)

	ctx := WithRunID(context.Background(), "run-1")
	log.Info("hello", LogWithRun(ctx)...)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "analyze", line["service"])
	assert.Equal(t, "run-1", line["run_id"])
	assert.Equal(t, "hello", line["msg"])
}

func TestInitWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := InitWriter(&buf, "analyze", slog.LevelWarn)
	log.Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestRunID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No run ID set
	assert.Empty(t, RunID(ctx))

	ctx = WithRunID(ctx, "test-run-123")
	assert.Equal(t, "test-run-123", RunID(ctx))
}

func TestNewRun(t *testing.T) {
	ctx, id := NewRun(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, RunID(ctx))
}

func TestLogWithRun(t *testing.T) {
	assert.Nil(t, LogWithRun(context.Background()))

	ctx := WithRunID(context.Background(), "abc-123")
	assert.Len(t, LogWithRun(ctx), 1)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}
