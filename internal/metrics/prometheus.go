package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/korospace/BE-WA-blaster/types"
)

// PrometheusCollector implements types.MetricsCollector backed by
// Prometheus.
//
// Metrics use the instance id as a label only for sends; transition,
// sweep and fan-out metrics are aggregated to keep cardinality bounded.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	transitions   *prometheus.CounterVec
	sweepDemoted  prometheus.Counter
	sweepRevived  prometheus.Counter
	sweepDuration prometheus.Histogram
	publishes     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sends         *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
}

// Compile-time assertion that PrometheusCollector implements
// MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (defaults to "wablaster" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector backed by Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "wablaster"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

// ensure lazily creates and registers all collectors exactly once.
func (p *PrometheusCollector) ensure() {
	p.once.Do(func() {
		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "status_transitions_total",
			Help:      "Instance status transitions by from/to status.",
		}, []string{"from", "to"})

		p.sweepDemoted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "sweep_demotions_total",
			Help:      "Ready queue entries demoted to the disconnect queue.",
		})

		p.sweepRevived = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "sweep_resurrections_total",
			Help:      "Disconnect queue entries resurrected into live sessions.",
		})

		p.sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one sweeper cycle.",
			Buckets:   prometheus.DefBuckets,
		})

		p.publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "publishes_total",
			Help:      "Realtime status publishes by result.",
		}, []string{"result"})

		p.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "notifications_total",
			Help:      "Notifier alert attempts by result.",
		}, []string{"result"})

		p.sends = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "sends_total",
			Help:      "Provider message send attempts by instance and result.",
		}, []string{"instance_id", "result"})

		p.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "queue_depth",
			Help:      "Current recovery queue depth.",
		}, []string{"queue"})

		for _, c := range []prometheus.Collector{
			p.transitions, p.sweepDemoted, p.sweepRevived, p.sweepDuration,
			p.publishes, p.notifications, p.sends, p.queueDepth,
		} {
			// AlreadyRegisteredError is tolerated so two collectors with the
			// same namespace can share a registry.
			if err := p.reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}

// RecordStatusTransition records one completed instance transition.
func (p *PrometheusCollector) RecordStatusTransition(_ string, from, to types.Status) {
	p.ensure()
	p.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordSweep records one completed sweeper cycle.
func (p *PrometheusCollector) RecordSweep(demoted, resurrected int, durationSeconds float64) {
	p.ensure()
	p.sweepDemoted.Add(float64(demoted))
	p.sweepRevived.Add(float64(resurrected))
	p.sweepDuration.Observe(durationSeconds)
}

// RecordPublish records one realtime publish attempt.
func (p *PrometheusCollector) RecordPublish(success bool) {
	p.ensure()
	p.publishes.WithLabelValues(result(success)).Inc()
}

// RecordNotification records one notifier alert attempt.
func (p *PrometheusCollector) RecordNotification(success bool) {
	p.ensure()
	p.notifications.WithLabelValues(result(success)).Inc()
}

// RecordSend records one provider message send attempt.
func (p *PrometheusCollector) RecordSend(instanceID string, success bool) {
	p.ensure()
	p.sends.WithLabelValues(instanceID, result(success)).Inc()
}

// RecordQueueDepth records the observed depth of a recovery queue.
func (p *PrometheusCollector) RecordQueueDepth(queue types.QueueName, depth int) {
	p.ensure()
	p.queueDepth.WithLabelValues(queue.String()).Set(float64(depth))
}

func result(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}
