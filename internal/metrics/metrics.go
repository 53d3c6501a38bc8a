// Package metrics holds the Prometheus counters updated by feedlog operations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry collects every feedlog metric. It is separate from the default
// registry so textfile dumps only carry feedlog series.
var Registry = prometheus.NewRegistry()

var (
	EntriesScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedlog_entries_scanned_total",
			Help: "Total number of source log entries read",
		},
		[]string{"op"},
	)

	EntriesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedlog_entries_written_total",
			Help: "Total number of entries appended to destination logs",
		},
		[]string{"op"},
	)

	BytesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedlog_bytes_written_total",
			Help: "Total payload bytes appended to destination logs",
		},
		[]string{"op"},
	)

	ChainErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedlog_chain_errors_total",
		Help: "Total number of messages that failed hash-chain validation",
	})

	SignatureFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedlog_signature_failures_total",
		Help: "Total number of failed signature checks (messages or batches)",
	})

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedlog_operation_duration_seconds",
			Help:    "Wall time of feedlog operations",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"op"},
	)
)

func init() {
	Registry.MustRegister(EntriesScanned, EntriesWritten, BytesWritten)
	Registry.MustRegister(ChainErrors, SignatureFailures, OperationDuration)
}

// ObserveDuration records the time elapsed since start for op.
func ObserveDuration(op string, start time.Time) {
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the registry to path in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
