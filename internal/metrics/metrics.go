// internal/metrics/metrics.go
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "uavbridge"

// Metrics holds the collectors shared by all adapters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	state     *prometheus.GaugeVec     // adapter
	faults    *prometheus.CounterVec   // adapter, class
	published *prometheus.CounterVec   // adapter, topic
	received  *prometheus.CounterVec   // adapter, topic
	cycle     *prometheus.HistogramVec // adapter
	overwrite *prometheus.GaugeVec     // slot
	rows      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "state",
			Help:      "Current adapter state (0 idle, 1 connecting, 2 joined, 3 running, 4 faulted, 5 stopped)",
		}, []string{"adapter"}),

		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "faults_total",
			Help:      "Faults observed by adapters, by recovery class",
		}, []string{"adapter", "class"}),

		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Messages published on the bus",
		}, []string{"adapter", "topic"}),

		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "received_total",
			Help:      "Messages handled from the bus",
		}, []string{"adapter", "topic"}),

		cycle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one adapter cycle",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"adapter"}),

		overwrite: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "freshness",
			Name:      "overwritten",
			Help:      "Values replaced in a freshness slot before being consumed",
		}, []string{"slot"}),

		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "rows_appended_total",
			Help:      "Telemetry rows appended to the statistics store",
		}),
	}

	var err error
	if m.state, err = register(reg, m.state); err != nil {
		return nil, err
	}
	if m.faults, err = register(reg, m.faults); err != nil {
		return nil, err
	}
	if m.published, err = register(reg, m.published); err != nil {
		return nil, err
	}
	if m.received, err = register(reg, m.received); err != nil {
		return nil, err
	}
	if m.cycle, err = register(reg, m.cycle); err != nil {
		return nil, err
	}
	if m.overwrite, err = register(reg, m.overwrite); err != nil {
		return nil, err
	}
	if m.rows, err = register(reg, m.rows); err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) SetState(adapter string, state int) {
	if m == nil {
		return
	}
	m.state.WithLabelValues(adapter).Set(float64(state))
}

func (m *Metrics) Fault(adapter, class string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(adapter, class).Inc()
}

func (m *Metrics) Published(adapter, topic string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(adapter, topic).Inc()
}

func (m *Metrics) Received(adapter, topic string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(adapter, topic).Inc()
}

func (m *Metrics) ObserveCycle(adapter string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycle.WithLabelValues(adapter).Observe(d.Seconds())
}

func (m *Metrics) SetOverwritten(slot string, n uint64) {
	if m == nil {
		return
	}
	m.overwrite.WithLabelValues(slot).Set(float64(n))
}

func (m *Metrics) RowAppended() {
	if m == nil {
		return
	}
	m.rows.Inc()
}
