package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Error kinds counted by IncError.
const (
	ErrUpstreamUnavailable = "upstream_unavailable"
	ErrMalformedPayload    = "malformed_payload"
	ErrRejectedCallback    = "rejected_callback"
	ErrNotifyFailure       = "notify_failure"
)

// Provider records what ukur does: messages in and out of the pipelines,
// recoverable errors by kind, and durations of the slow paths.
type Provider interface {
	IncReceived(kind string)
	IncQueued(kind string)
	IncError(kind string)
	IncCallback(kind string)
	ObservePull(kind string, d time.Duration)
	ObserveProcess(kind string, d time.Duration)
	SetLiveJourneys(count int)
}

type provider struct {
	received     *prometheus.CounterVec
	queued       *prometheus.CounterVec
	errors       *prometheus.CounterVec
	callbacks    *prometheus.CounterVec
	pullSeconds  *prometheus.HistogramVec
	procSeconds  *prometheus.HistogramVec
	liveJourneys prometheus.Gauge
}

var (
	defaultOnce     sync.Once
	defaultProvider Provider
)

// New returns the process-wide provider backed by the default prometheus
// registry. The metric family is registered once, later calls share it.
func New() Provider {
	defaultOnce.Do(func() {
		defaultProvider = NewWith(prometheus.DefaultRegisterer)
	})
	return defaultProvider
}

// NewWith registers the ukur metric family on reg.
func NewWith(reg prometheus.Registerer) Provider {
	factory := promauto.With(reg)
	return &provider{
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ukur_messages_received_total",
			Help: "Messages received from Anshar, by feed kind",
		}, []string{"kind"}),

		queued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ukur_messages_queued_total",
			Help: "Elements fanned out to the internal work queues, by feed kind",
		}, []string{"kind"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ukur_errors_total",
			Help: "Recoverable errors, by kind",
		}, []string{"kind"}),

		callbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ukur_subscribed_messages_total",
			Help: "Inbound subscription callbacks, by feed kind",
		}, []string{"kind"}),

		pullSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ukur_pull_duration_seconds",
			Help:    "Duration of upstream pulls, by feed kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		procSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ukur_process_duration_seconds",
			Help:    "Duration of per-element processing, by feed kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		liveJourneys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ukur_live_journeys",
			Help: "Journeys currently held in the live-journey cache",
		}),
	}
}

func (p *provider) IncReceived(kind string) { p.received.WithLabelValues(kind).Inc() }
func (p *provider) IncQueued(kind string) { p.queued.WithLabelValues(kind).Inc() }
func (p *provider) IncError(kind string) { p.errors.WithLabelValues(kind).Inc() }
func (p *provider) IncCallback(kind string) { p.callbacks.WithLabelValues(kind).Inc() }
func (p *provider) ObservePull(kind string, d time.Duration) {
	p.pullSeconds.WithLabelValues(kind).Observe(d.Seconds())
}
func (p *provider) ObserveProcess(kind string, d time.Duration) {
	p.procSeconds.WithLabelValues(kind).Observe(d.Seconds())
}
func (p *provider) SetLiveJourneys(count int) { p.liveJourneys.Set(float64(count)) }

// Noop returns a provider that records nothing, for tests and disabled
// metrics.
func Noop() Provider { return &noop{} }

type noop struct{}

func (noop) IncReceived(string)                   {}
func (noop) IncQueued(string)                     {}
func (noop) IncError(string)                      {}
func (noop) IncCallback(string)                   {}
func (noop) ObservePull(string, time.Duration)    {}
func (noop) ObserveProcess(string, time.Duration) {}
func (noop) SetLiveJourneys(int)                  {}
