package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "taxcalc_"

	ResultClean    = "clean"
	ResultFindings = "findings"
	ResultError    = "error"
	ResultNotFound = "not_found"

	ImportInserted = "inserted"
	ImportUpdated  = "updated"
	ImportRejected = "rejected"
)

var (
	registerOnce sync.Once

	verificationsTotal   *prometheus.CounterVec
	verificationDuration *prometheus.HistogramVec
	taxMismatchesTotal   prometheus.Counter
	orderImportsTotal    *prometheus.CounterVec
)

// Init registers the verification metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		verificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "verifications_total",
				Help: "Total order tax verifications by discount pattern and result",
			},
			[]string{"pattern", "result"},
		)
		verificationDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "verification_duration_seconds",
				Help:    "Order tax verification latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		taxMismatchesTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "tax_mismatches_total",
				Help: "Total per-tax comparisons that did not match",
			},
		)
		orderImportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "order_imports_total",
				Help: "Total imported order documents by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			verificationsTotal,
			verificationDuration,
			taxMismatchesTotal,
			orderImportsTotal,
		)
	})
}

// ObserveVerification records one verification. pattern is empty when the
// run failed before classification.
func ObserveVerification(pattern, result string, duration time.Duration) {
	if pattern == "" {
		pattern = "unknown"
	}
	if verificationsTotal != nil {
		verificationsTotal.WithLabelValues(pattern, result).Inc()
	}
	if verificationDuration != nil {
		verificationDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func AddMismatches(count int) {
	if count <= 0 {
		return
	}
	if taxMismatchesTotal != nil {
		taxMismatchesTotal.Add(float64(count))
	}
}

func IncOrderImport(outcome string) {
	if orderImportsTotal != nil {
		orderImportsTotal.WithLabelValues(outcome).Inc()
	}
}
