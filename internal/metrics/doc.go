// Package metrics exposes the watch-mode Prometheus instruments:
// run counts by status, row and group throughput, and run latency.
package metrics
