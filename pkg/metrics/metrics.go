// Package metrics provides the Prometheus registry used by the explorer client.
// All metrics are defined in their respective packages (client, pagination,
// manifest) via promauto to keep packages free of circular dependencies.
//
// A one-shot command has no scrape endpoint, so metrics are exported once at
// exit in the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the explorer client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back everything registered on Registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all gathered metrics to path. The file is written to
// a temporary name and renamed, so collectors never read a partial file.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics file path is required")
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - explorer_requests_total{action, status} (Counter): Requests by module.action and outcome
//   - explorer_request_duration_seconds{action} (Histogram): Call duration, retries included
//   - explorer_errors_total{class} (Counter): Failed attempts by class (client, server, network, decode)
//   - explorer_api_status_failures_total{action} (Counter): Envelopes with status "0"
//
// Retry Metrics (pkg/client):
//   - explorer_retries_total{error_class} (Counter): Retry attempts by error class
//   - explorer_retry_backoff_seconds{error_class} (Histogram): Linear backoff waits
//   - explorer_retry_exhausted_total{error_class} (Counter): Calls that exhausted all attempts
//
// Pagination Metrics (pkg/pagination):
//   - explorer_pages_fetched_total{action} (Counter): Pages requested
//   - explorer_records_accumulated_total{action} (Counter): Records returned to callers
//   - explorer_records_discarded_total{action} (Counter): Records truncated to honour a cap
//
// Manifest Metrics (pkg/manifest):
//   - explorer_manifests_saved_total{backend} (Counter): Manifests saved (file, redis)
//   - explorer_manifest_errors_total{operation} (Counter): Manifest store errors
//
// Example Prometheus Queries:
//
//   # Attempt failure ratio
//   sum(rate(explorer_errors_total[1h])) / sum(rate(explorer_requests_total[1h]))
//
//   # Extractions hitting their cap
//   sum by (action) (increase(explorer_records_discarded_total[1d])) > 0
//
//   # P95 call latency
//   histogram_quantile(0.95, rate(explorer_request_duration_seconds_bucket[5m]))
