package observability

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"soulbound/core/events"
	"soulbound/core/types"
	"soulbound/observability/logging"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking emitted ledger and registry
// events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "soulbound",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of emitted events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Record increments the counter for the supplied event type.
func (m *eventMetrics) Record(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(eventType))
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// identityKeys are event attributes that name a holder; token ids embed one.
// They are masked in logs and left intact in the forwarded event.
var identityKeys = map[string]struct{}{
	"id":          {},
	"from":        {},
	"to":          {},
	"original":    {},
	"replacement": {},
}

type generic interface {
	Event() *types.Event
}

// Recorder is an events.Emitter that counts and logs every event before
// forwarding it.
type Recorder struct {
	next    events.Emitter
	logger  *slog.Logger
	metrics *eventMetrics
}

// NewRecorder wraps next. A nil next discards events after recording them;
// a nil logger disables logging.
func NewRecorder(next events.Emitter, logger *slog.Logger) *Recorder {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &Recorder{next: next, logger: logger, metrics: Events()}
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	r.metrics.Record(evt.EventType())
	if r.logger != nil {
		r.logger.Info("event", eventAttrs(evt)...)
	}
	r.next.Emit(evt)
}

func eventAttrs(evt events.Event) []any {
	attrs := []any{slog.String("type", evt.EventType())}
	g, ok := evt.(generic)
	if !ok {
		return attrs
	}
	rendered := g.Event()
	if rendered == nil {
		return attrs
	}
	keys := make([]string, 0, len(rendered.Attributes))
	for key := range rendered.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := rendered.Attributes[key]
		if _, sensitive := identityKeys[key]; sensitive {
			attrs = append(attrs, logging.MaskField(key, value))
			continue
		}
		attrs = append(attrs, slog.String(key, value))
	}
	return attrs
}
