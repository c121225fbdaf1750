package prometheus

import (
	"time"

	"github.com/marmos91/xdrproxy/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// xlateMetrics is the Prometheus implementation of metrics.XlateMetrics.
type xlateMetrics struct {
	translations   *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	inFlight       prometheus.Gauge
	payloadBytes   *prometheus.HistogramVec
	debugLevel     prometheus.Gauge
	schemaReloads  *prometheus.CounterVec
	schemaPrograms prometheus.Gauge
}

// NewXlateMetrics creates a Prometheus-backed XlateMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewXlateMetrics() metrics.XlateMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &xlateMetrics{
		translations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "xdrproxy_translations_total",
				Help: "Total number of xdr.xlate calls by program, procedure and outcome",
			},
			[]string{"program", "procedure", "outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "xdrproxy_translation_duration_milliseconds",
				Help: "Duration of xdr.xlate calls in milliseconds, including the ONC-RPC round trip",
				Buckets: []float64{
					0.5,   // 500us - loopback targets
					1,     // 1ms
					5,     // 5ms
					10,    // 10ms - LAN targets
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s
					10000, // 10s - default call timeout
				},
			},
			[]string{"program", "procedure"},
		),
		inFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "xdrproxy_translations_in_flight",
				Help: "Number of xdr.xlate calls currently being processed",
			},
		),
		payloadBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "xdrproxy_payload_bytes",
				Help: "Size of XDR-encoded call arguments and reply bodies",
				Buckets: []float64{
					16,      // single scalars
					64,      // small structs
					256,     // 256B
					1024,    // 1KB
					8192,    // 8KB
					65536,   // 64KB
					1048576, // 1MB - default max reply size
				},
			},
			[]string{"program", "direction"}, // "arg", "reply"
		),
		debugLevel: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "xdrproxy_debug_level",
				Help: "Current proxy debug level",
			},
		),
		schemaReloads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "xdrproxy_schema_reloads_total",
				Help: "Total number of schema reload attempts by result",
			},
			[]string{"result"}, // "success", "failure"
		),
		schemaPrograms: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "xdrproxy_schema_programs",
				Help: "Number of programs in the active schema registry",
			},
		),
	}
}

func (m *xlateMetrics) RecordTranslate(program, procedure, outcome string, duration time.Duration) {
	m.translations.WithLabelValues(program, procedure, outcome).Inc()
	m.duration.WithLabelValues(program, procedure).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *xlateMetrics) RecordTranslateStart() {
	m.inFlight.Inc()
}

func (m *xlateMetrics) RecordTranslateEnd() {
	m.inFlight.Dec()
}

func (m *xlateMetrics) RecordPayload(program, direction string, bytes int) {
	m.payloadBytes.WithLabelValues(program, direction).Observe(float64(bytes))
}

func (m *xlateMetrics) SetDebugLevel(level int64) {
	m.debugLevel.Set(float64(level))
}

func (m *xlateMetrics) RecordSchemaReload(success bool, programs int) {
	if !success {
		m.schemaReloads.WithLabelValues("failure").Inc()
		return
	}
	m.schemaReloads.WithLabelValues("success").Inc()
	m.schemaPrograms.Set(float64(programs))
}
