// Package runlog keeps a thread-safe, bounded in-memory history of
// completed pipeline runs for the watch-mode status API. Oldest entries
// fall off once the capacity is reached.
package runlog
