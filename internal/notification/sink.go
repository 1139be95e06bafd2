package notification

import (
	"context"
	"errors"
	"fmt"

	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
)

// Sink adapts a set of notifiers to model.ReportSink.
type Sink struct {
	notifiers   []Notifier
	minStrength int
	metrics     *metrics.Metrics
}

// NewSink creates a sink that sends every alert to every notifier. m may be nil.
func NewSink(minStrength int, m *metrics.Metrics, notifiers ...Notifier) *Sink {
	return &Sink{notifiers: notifiers, minStrength: minStrength, metrics: m}
}

func (s *Sink) Name() string { return "notify" }

// Handle delivers the report's alerts. Failures on one channel do not stop
// delivery on the others; all errors are returned joined.
func (s *Sink) Handle(ctx context.Context, r model.Report) error {
	var errs []error
	for _, a := range Alerts(r, s.minStrength) {
		for _, n := range s.notifiers {
			err := n.Send(ctx, a)
			status := "sent"
			if err != nil {
				status = "failed"
				errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			}
			if s.metrics != nil {
				s.metrics.Notifications.WithLabelValues(n.Name(), status).Inc()
			}
		}
	}
	return errors.Join(errs...)
}
