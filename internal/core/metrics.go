package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts what flows through the station. All collectors are
// registered on the registry passed to NewMetrics.
type Metrics struct {
	BytesRead        prometheus.Counter
	SamplesDecoded   *prometheus.CounterVec
	MalformedRecords prometheus.Counter
	ReadErrors       prometheus.Counter
	CommandsSent     *prometheus.CounterVec
	CommandsFailed   *prometheus.CounterVec
	Renders          prometheus.Counter
	TickDuration     prometheus.Histogram
	reg              prometheus.Registerer
}

// NewMetrics creates the station collectors. A nil registerer leaves them
// unregistered, which is what most tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydrosync_bytes_read_total",
			Help: "Bytes read from the serial link.",
		}),
		SamplesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydrosync_samples_decoded_total",
			Help: "Telemetry samples decoded and queued, by kind.",
		}, []string{"kind"}),
		MalformedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydrosync_malformed_records_total",
			Help: "Records discarded because they could not be decoded.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydrosync_read_errors_total",
			Help: "Transient read errors on the serial link.",
		}),
		CommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydrosync_commands_sent_total",
			Help: "Commands written to the device, by action.",
		}, []string{"action"}),
		CommandsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydrosync_commands_failed_total",
			Help: "Commands that could not be written, by action.",
		}, []string{"action"}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydrosync_views_rendered_total",
			Help: "Views handed to the renderer.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hydrosync_consumer_tick_seconds",
			Help:    "Time spent applying queued samples per consumer tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.BytesRead,
			m.SamplesDecoded,
			m.MalformedRecords,
			m.ReadErrors,
			m.CommandsSent,
			m.CommandsFailed,
			m.Renders,
			m.TickDuration,
		)
	}
	return m
}

// WatchQueue exports the queue depth as a gauge.
func (m *Metrics) WatchQueue(q *Queue) {
	if m.reg == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "hydrosync_queue_depth",
		Help: "Samples waiting for the consumer.",
	}, func() float64 { return float64(q.Len()) }))
}
