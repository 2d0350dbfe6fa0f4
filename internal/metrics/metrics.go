// Package metrics records provider metrics with Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ciba"

// Prometheus implements op.Metrics.
type Prometheus struct {
	registry *prometheus.Registry

	grantsCreated  *prometheus.CounterVec
	grantsResolved *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	sweepExpired   prometheus.Counter
	sweepSkipped   prometheus.Counter
}

// New registers the provider metrics, together with the
// Go runtime and process collectors, in a new registry.
func New() (*Prometheus, error) {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		grantsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grants_created_total",
			Help:      "Backchannel authentication requests accepted, by delivery mode.",
		}, []string{"mode"}),
		grantsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grants_resolved_total",
			Help:      "Grants which left PENDING, by resulting status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Client notifications sent, by kind and success.",
		}, []string{"kind", "success"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of expiration sweeper ticks.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		sweepExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_expired_total",
			Help:      "Grants expired by the sweeper.",
		}),
		sweepSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_skipped_total",
			Help:      "Sweeper ticks skipped because another tick was running.",
		}),
	}
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.grantsCreated,
		p.grantsResolved,
		p.notifications,
		p.sweepDuration,
		p.sweepExpired,
		p.sweepSkipped,
	} {
		if err := p.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) GrantCreated(mode string) {
	p.grantsCreated.WithLabelValues(mode).Inc()
}

func (p *Prometheus) GrantResolved(status string) {
	p.grantsResolved.WithLabelValues(status).Inc()
}

func (p *Prometheus) NotificationSent(kind string, success bool) {
	p.notifications.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

func (p *Prometheus) SweepFinished(d time.Duration, expired int) {
	p.sweepDuration.Observe(d.Seconds())
	p.sweepExpired.Add(float64(expired))
}

func (p *Prometheus) SweepSkipped() {
	p.sweepSkipped.Inc()
}
