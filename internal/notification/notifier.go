// Package notification delivers trading alerts (fresh composite signals,
// pipeline failures) to external channels: Telegram, generic webhooks, or
// the log for development.
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"cryptoquant/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Signal carries the composite
// signal for backends that render its fields natively; Title and Message are
// the plain-text fallback every backend can use.
type Alert struct {
	Level   AlertLevel    `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Signal  *model.Signal `json:"signal,omitempty"`
}

// SignalAlert formats a composite signal as an alert.
func SignalAlert(sig model.Signal) Alert {
	ts := time.UnixMilli(sig.Timestamp).UTC().Format("2006-01-02 15:04 UTC")
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %s %s", sig.Type, sig.Symbol, sig.Timeframe),
		Message: fmt.Sprintf("price %.4f at %s (confidence %.0f%%)\n%s",
			sig.Price, ts, sig.Confidence*100, strings.Join(sig.Reasons, "\n")),
		Signal: &sig,
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// Fanout sends each alert to every backend, logging per-backend failures
// instead of aborting the remaining sends.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, n := range f {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[notify] backend error: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}
