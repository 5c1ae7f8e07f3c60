package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"yakisoba/core/types"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured engine events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yakisoba",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of structured engine events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// RecordEvent increments the counter for the supplied event type.
func (m *eventMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// CountingSink wraps an event sink and counts everything passing through it.
// A nil inner sink still counts; events are then dropped after counting.
type CountingSink struct {
	Inner types.EventSink
}

func (s *CountingSink) Emit(evt *types.Event) {
	if evt == nil {
		return
	}
	Events().RecordEvent(evt.Type)
	if s.Inner != nil {
		s.Inner.Emit(evt)
	}
}
