package collationgen

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes the subsystem. The zero value is disabled: every method
// is a no-op, so instrumentation never affects control flow.
type Metrics struct {
	inner *metricsInner
}

type metricsInner struct {
	collationsGenerated prometheus.Counter
	activationsOverall  prometheus.Histogram
	perRelayParent      prometheus.Histogram
	perCore             prometheus.Histogram
}

// NewMetrics registers the subsystem's collectors with reg.
func NewMetrics(reg prometheus.Registerer) (Metrics, error) {
	inner := &metricsInner{
		collationsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parachain_collations_generated_total",
			Help: "Number of collations generated.",
		}),
		activationsOverall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "parachain_collation_generation_new_activations_seconds",
			Help: "Time spent handling one batch of new activations.",
		}),
		perRelayParent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "parachain_collation_generation_per_relay_parent_seconds",
			Help: "Time spent handling a single relay parent within an activation batch.",
		}),
		perCore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "parachain_collation_generation_per_availability_core_seconds",
			Help: "Time spent handling a single availability core for a relay parent.",
		}),
	}

	collectors := []prometheus.Collector{
		inner.collationsGenerated,
		inner.activationsOverall,
		inner.perRelayParent,
		inner.perCore,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return Metrics{}, err
		}
	}

	return Metrics{inner: inner}, nil
}

func (m Metrics) onCollationGenerated() {
	if m.inner != nil {
		m.inner.collationsGenerated.Inc()
	}
}

// timeActivations returns a stop function observing the whole-batch duration.
func (m Metrics) timeActivations() func() {
	if m.inner == nil {
		return func() {}
	}

	t := prometheus.NewTimer(m.inner.activationsOverall)

	return func() { t.ObserveDuration() }
}

// timeRelayParent returns a stop function observing one relay parent's handling.
func (m Metrics) timeRelayParent() func() {
	if m.inner == nil {
		return func() {}
	}

	t := prometheus.NewTimer(m.inner.perRelayParent)

	return func() { t.ObserveDuration() }
}

// timeCore returns a stop function observing one core's handling.
func (m Metrics) timeCore() func() {
	if m.inner == nil {
		return func() {}
	}

	t := prometheus.NewTimer(m.inner.perCore)

	return func() { t.ObserveDuration() }
}
