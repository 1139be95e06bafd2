// Package notification delivers pattern and momentum alerts to external
// channels (log, Telegram, webhooks).
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"candlewatch/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// strongScore is the strength at which a pattern alert becomes a warning.
const strongScore = 80

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Symbol  string     `json:"symbol"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	TS      time.Time  `json:"ts"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Alerts turns a report into one alert per pattern and per momentum event.
// Patterns scored below minStrength are skipped; with minStrength > 0,
// unscored patterns are skipped too.
func Alerts(r model.Report, minStrength int) []Alert {
	out := make([]Alert, 0, len(r.Patterns)+len(r.Momentum))

	for _, p := range r.Patterns {
		if minStrength > 0 && (p.Strength == nil || *p.Strength < minStrength) {
			continue
		}
		level := AlertInfo
		if p.Strength != nil && *p.Strength >= strongScore {
			level = AlertWarning
		}
		var msg strings.Builder
		fmt.Fprintf(&msg, "%s (%s) at %s", p.Name, p.Name.Meaning(), p.TS.Format("15:04:05"))
		if p.Strength != nil {
			fmt.Fprintf(&msg, ", strength %d", *p.Strength)
		}
		out = append(out, Alert{
			Level:   level,
			Symbol:  r.Symbol,
			Title:   fmt.Sprintf("%s %s %s", r.Symbol, p.Name, p.Direction),
			Message: msg.String(),
			TS:      p.TS,
		})
	}

	for _, m := range r.Momentum {
		level := AlertInfo
		if m.Category == model.StrongSurge || m.Category == model.SharpDrop {
			level = AlertWarning
		}
		out = append(out, Alert{
			Level:  level,
			Symbol: r.Symbol,
			Title:  fmt.Sprintf("%s %s", r.Symbol, m.Category),
			Message: fmt.Sprintf("%.2f -> %.2f (%+.2f%%) between %s and %s",
				m.FromPrice, m.ToPrice, m.PctChange,
				m.From.Format("15:04:05"), m.To.Format("15:04:05")),
			TS: m.To,
		})
	}
	return out
}
