package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	docOperationsTotal   *prometheus.CounterVec
	docOperationDuration *prometheus.HistogramVec
	docCacheLookupsTotal *prometheus.CounterVec
	docConnectsTotal     *prometheus.CounterVec

	docMetricsOnce sync.Once
)

func initializeDocstoreMetrics() {
	docMetricsOnce.Do(func() {
		docOperationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_operations_total",
				Help: "Total number of document operations by outcome",
			},
			[]string{"operation", "bucket", "result"},
		)

		docOperationDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docstore_operation_duration_seconds",
				Help:    "Time spent executing document operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "bucket"},
		)

		docCacheLookupsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_cache_lookups_total",
				Help: "Cluster and bucket handle cache lookups",
			},
			[]string{"cache", "result"},
		)

		docConnectsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_connects_total",
				Help: "Cluster connect attempts",
			},
			[]string{"result"},
		)

		GetInstance().registry.MustRegister(
			docOperationsTotal,
			docOperationDuration,
			docCacheLookupsTotal,
			docConnectsTotal,
		)
	})
}

// RecordOperation records the outcome and latency of one document operation
func RecordOperation(operation, bucket, result string, startTime time.Time) {
	if !enabled("ENABLE_BUSINESS_METRICS") {
		return
	}
	initializeDocstoreMetrics()

	docOperationsTotal.WithLabelValues(operation, bucket, result).Inc()
	docOperationDuration.WithLabelValues(operation, bucket).Observe(time.Since(startTime).Seconds())
}

// RecordCacheLookup records a hit or miss against the cluster or bucket cache
func RecordCacheLookup(cache, result string) {
	if !enabled("ENABLE_BUSINESS_METRICS") {
		return
	}
	initializeDocstoreMetrics()

	docCacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordConnect records a cluster connect attempt
func RecordConnect(result string) {
	if !enabled("ENABLE_BUSINESS_METRICS") {
		return
	}
	initializeDocstoreMetrics()

	docConnectsTotal.WithLabelValues(result).Inc()
}
