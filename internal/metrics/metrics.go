// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/transitdash/testresults/internal/domain"
)

var (
	initOnce sync.Once

	eventsTotalCounter     *prometheus.CounterVec
	batchesTotalCounter    prometheus.Counter
	batchRejectedCounter   prometheus.Counter
	batchSizeMetric        prometheus.Histogram
	batchDurationMetric    prometheus.Histogram
	readQueriesTotalVector *prometheus.CounterVec
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		eventsTotalCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_events_total",
				Help: "Total number of processed events by kind and outcome.",
			},
			[]string{"kind", "status"},
		)

		batchesTotalCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_batches_total",
				Help: "Total number of batches that passed the structural gate.",
			},
		)

		batchRejectedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_batches_rejected_total",
				Help: "Total number of batches rejected before event processing.",
			},
		)

		batchSizeMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_batch_events",
				Help:    "Number of events per processed batch.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
			},
		)

		batchDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_batch_duration_seconds",
				Help:    "Duration of batch processing in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		readQueriesTotalVector = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "read_queries_total",
				Help: "Total number of read-side queries by view.",
			},
			[]string{"view"},
		)

		prometheus.MustRegister(
			eventsTotalCounter,
			batchesTotalCounter,
			batchRejectedCounter,
			batchSizeMetric,
			batchDurationMetric,
			readQueriesTotalVector,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		statuses := []domain.OutcomeStatus{
			domain.OutcomeAccepted,
			domain.OutcomeDuplicate,
			domain.OutcomeFailed,
		}
		for _, kind := range domain.Kinds() {
			for _, status := range statuses {
				eventsTotalCounter.WithLabelValues(string(kind), string(status))
			}
		}
		for _, view := range []string{"listing", "run_detail", "customer_index"} {
			readQueriesTotalVector.WithLabelValues(view)
		}
	})
}

func IncEventOutcome(kind string, status domain.OutcomeStatus) {
	Init()
	eventsTotalCounter.WithLabelValues(kind, string(status)).Inc()
}

func IncBatches() {
	Init()
	batchesTotalCounter.Inc()
}

func IncBatchRejected() {
	Init()
	batchRejectedCounter.Inc()
}

func ObserveBatchSize(events int) {
	Init()
	batchSizeMetric.Observe(float64(events))
}

func ObserveBatchDuration(d time.Duration) {
	Init()
	batchDurationMetric.Observe(d.Seconds())
}

func IncReadQuery(view string) {
	Init()
	readQueriesTotalVector.WithLabelValues(view).Inc()
}
