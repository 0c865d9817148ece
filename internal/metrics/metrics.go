// internal/metrics/metrics.go
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "plcview_"

// Result labels for poll cycle outcomes.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	pollCycles     *prometheus.CounterVec
	readErrors     *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	samplesStored  *prometheus.CounterVec
	deviceUp       *prometheus.GaugeVec
	cycleSeconds   *prometheus.HistogramVec
	streamClients  prometheus.Gauge
	exportsTotal   *prometheus.CounterVec
)

// Init registers all collectors with the default registry.
// Safe to call more than once; helpers are no-ops until it runs, so unit
// tests that never call Init keep the default registry clean.
func Init() {
	registerOnce.Do(func() {
		pollCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "poll_cycles_total",
			Help: "Poll cycles per device and outcome.",
		}, []string{"device", "result"})

		readErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "read_errors_total",
			Help: "Block read failures per device.",
		}, []string{"device"})

		decodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "decode_failures_total",
			Help: "Samples that could not be decoded, per device.",
		}, []string{"device"})

		samplesStored = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "samples_stored_total",
			Help: "Samples appended to the in-memory store, per device.",
		}, []string{"device"})

		deviceUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricPrefix + "device_up",
			Help: "1 while the device connection is established and polling.",
		}, []string{"device"})

		cycleSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "poll_cycle_seconds",
			Help:    "Wall time of one poll cycle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"device"})

		streamClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "stream_clients",
			Help: "Connected SSE subscribers.",
		})

		exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "exports_total",
			Help: "Export downloads by format.",
		}, []string{"format"})

		prometheus.MustRegister(
			pollCycles,
			readErrors,
			decodeFailures,
			samplesStored,
			deviceUp,
			cycleSeconds,
			streamClients,
			exportsTotal,
		)
	})
}

func ObserveCycle(device, result string, d time.Duration) {
	if pollCycles == nil {
		return
	}
	pollCycles.WithLabelValues(device, result).Inc()
	cycleSeconds.WithLabelValues(device).Observe(d.Seconds())
}

func IncReadError(device string) {
	if readErrors == nil {
		return
	}
	readErrors.WithLabelValues(device).Inc()
}

func IncDecodeFailure(device string) {
	if decodeFailures == nil {
		return
	}
	decodeFailures.WithLabelValues(device).Inc()
}

func AddSamplesStored(device string, n int) {
	if samplesStored == nil {
		return
	}
	samplesStored.WithLabelValues(device).Add(float64(n))
}

func SetDeviceUp(device string, up bool) {
	if deviceUp == nil {
		return
	}
	v := 0.0
	if up {
		v = 1.0
	}
	deviceUp.WithLabelValues(device).Set(v)
}

func IncStreamClients() {
	if streamClients == nil {
		return
	}
	streamClients.Inc()
}

func DecStreamClients() {
	if streamClients == nil {
		return
	}
	streamClients.Dec()
}

func IncExport(format string) {
	if exportsTotal == nil {
		return
	}
	exportsTotal.WithLabelValues(format).Inc()
}
