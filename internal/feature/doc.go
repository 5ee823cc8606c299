// Package feature derives the per-trip columns the window aggregation
// groups and targets: travel time (raw, standardized, log1p), simulated
// calendar fields, origin-destination buckets at three granularities,
// distance buckets, and traffic-light crossing indicators for the ring
// network.
//
// The input is raw simulator vehicle data (In Time, Arrival Time,
// Origin, Destination, PathLength); the output is a new table with the
// derived columns appended. Trips with non-positive travel time or with
// a path no longer than the configured minimum are dropped.
package feature
