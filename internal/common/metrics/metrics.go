package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics menampung collector Prometheus untuk ruang tindakan.
// Semua method aman dipanggil pada receiver nil sehingga service tidak wajib memakai metrics.
type Metrics struct {
	registry       *prometheus.Registry
	transitions    *prometheus.CounterVec
	cancellations  *prometheus.CounterVec
	queueSize      prometheus.Gauge
	queueDiverged  prometheus.Gauge
	codesGenerated *prometheus.CounterVec
	lockRejections *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kunjungan_status_transitions_total",
			Help: "Jumlah permintaan perubahan status kunjungan",
		}, []string{"from", "to", "result"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "antrian_cancellations_total",
			Help: "Jumlah pembatalan antrian",
		}, []string{"result"}),
		queueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antrian_active_entries",
			Help: "Jumlah antrian aktif di ruang tindakan",
		}),
		queueDiverged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antrian_status_diverged_entries",
			Help: "Jumlah kunjungan yang status kunjungan dan status antriannya berbeda",
		}),
		codesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "katalog_codes_generated_total",
			Help: "Jumlah kode katalog yang dibuat",
		}, []string{"jenis"}),
		lockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kunjungan_lock_rejections_total",
			Help: "Jumlah operasi obat/tindakan yang ditolak karena kunjungan terkunci",
		}, []string{"operation"}),
	}

	registry.MustRegister(m.transitions, m.cancellations, m.queueSize, m.queueDiverged, m.codesGenerated, m.lockRejections)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, result).Inc()
}

func (m *Metrics) ObserveCancellation(result string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(result).Inc()
}

func (m *Metrics) SetQueueSize(n int) {
	if m == nil {
		return
	}
	m.queueSize.Set(float64(n))
}

func (m *Metrics) SetDiverged(n int) {
	if m == nil {
		return
	}
	m.queueDiverged.Set(float64(n))
}

func (m *Metrics) ObserveCodeGenerated(kind string) {
	if m == nil {
		return
	}
	m.codesGenerated.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveLockRejection(operation string) {
	if m == nil {
		return
	}
	m.lockRejections.WithLabelValues(operation).Inc()
}
