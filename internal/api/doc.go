// Package api serves the watch-mode HTTP status endpoints: overall
// pipeline health and the recent run history. Prometheus metrics are
// mounted separately on /metrics by the caller.
package api
