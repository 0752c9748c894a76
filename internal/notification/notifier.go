// Package notification delivers signal alerts to external channels
// (webhooks, Telegram) or to the structured log.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/strategy"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level    AlertLevel    `json:"level"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Symbol   string        `json:"symbol,omitempty"`
	Date     string        `json:"date,omitempty"`
	Signal   strategy.Kind `json:"signal"`
	Position int           `json:"position"`
	RunID    string        `json:"run_id,omitempty"`
}

// SignalAlert describes a position on the latest bar. Strong signals are
// WARNING, regular ones INFO.
func SignalAlert(symbol string, date time.Time, kind strategy.Kind, position int, close float64, rsi model.Float, runID string) Alert {
	level := AlertInfo
	if kind == strategy.KindStrongBuy || kind == strategy.KindStrongSell {
		level = AlertWarning
	}
	rsiText := "n/a"
	if rsi.Valid {
		rsiText = fmt.Sprintf("%.1f", rsi.V)
	}
	return Alert{
		Level:    level,
		Title:    fmt.Sprintf("%s %s signal", symbol, kind),
		Message:  fmt.Sprintf("%s close %.2f, RSI %s, position %d", date.Format(model.DateLayout), close, rsiText, position),
		Symbol:   symbol,
		Date:     date.Format(model.DateLayout),
		Signal:   kind,
		Position: position,
		RunID:    runID,
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to a structured logger.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier. A nil logger uses slog.Default().
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.Info("signal alert",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message),
		slog.String("run_id", alert.RunID),
	)
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
