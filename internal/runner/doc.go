// Package runner partitions a trip table into independent groups, runs
// the trailing-window aggregation on each group in parallel, and
// concatenates the annotated groups back into one table.
//
// Groups share no mutable state, so the fan-out needs no locking: one
// errgroup task per group, bounded by the worker limit, with a fail-fast
// join. Any task error aborts the whole run; a partially aggregated
// table is never returned.
package runner
