package runlog

import (
	"sync"
	"time"
)

// Run records the outcome of one pipeline run.
type Run struct {
	Seq      int           `json:"seq"`
	Input    string        `json:"input"`
	Output   string        `json:"output,omitempty"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Groups   int           `json:"groups"`
	Duration time.Duration `json:"duration_ns"`
	Started  time.Time     `json:"started"`
	Error    string        `json:"error,omitempty"`
}

// OK reports whether the run completed without error.
func (r Run) OK() bool { return r.Error == "" }

// Log is a thread-safe bounded history of runs, newest last.
type Log struct {
	mu   sync.RWMutex
	runs []Run
	cap  int
	seq  int
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Log keeping at most capacity runs.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{cap: capacity, now: time.Now}
}

// Add appends a run, assigning its sequence number and start time if
// unset, and evicts the oldest entry when over capacity. The stored run
// is returned.
func (l *Log) Add(r Run) Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	r.Seq = l.seq
	if r.Started.IsZero() {
		r.Started = l.now()
	}
	l.runs = append(l.runs, r)
	if len(l.runs) > l.cap {
		l.runs = l.runs[len(l.runs)-l.cap:]
	}
	return r
}

// List returns the retained runs, newest first.
func (l *Log) List() []Run {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Run, len(l.runs))
	for i, r := range l.runs {
		out[len(l.runs)-1-i] = r
	}
	return out
}

// Counts returns how many retained runs succeeded and failed.
func (l *Log) Counts() (ok, failed int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.runs {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
