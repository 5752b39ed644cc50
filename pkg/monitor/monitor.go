// Package monitor tracks acknowledgment throughput. It only observes; nothing
// in the pipeline waits on it.
package monitor

import (
	"sync/atomic"
	"time"

	"github.com/papercomputeco/glyph/pkg/ingest"
)

// Monitor counts acknowledgments since it was created or last reset.
type Monitor struct {
	now   func() time.Time
	start atomic.Int64

	total   atomic.Uint64
	indexed atomic.Uint64
	failed  atomic.Uint64
}

// Snapshot is a point-in-time view of a Monitor.
type Snapshot struct {
	Total   uint64        `json:"total"`
	Indexed uint64        `json:"indexed"`
	Failed  uint64        `json:"failed"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Rate    float64       `json:"rate_per_sec"`
}

// New creates a Monitor whose clock starts now.
func New() *Monitor {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Monitor {
	m := &Monitor{now: now}
	m.start.Store(now().UnixNano())
	return m
}

// Observe records one acknowledgment and returns the running total.
func (m *Monitor) Observe(ack ingest.Ack) uint64 {
	if ack.OK() {
		m.indexed.Add(1)
	} else {
		m.failed.Add(1)
	}
	return m.total.Add(1)
}

// Count returns the number of acknowledgments observed.
func (m *Monitor) Count() uint64 {
	return m.total.Load()
}

// Rate returns acknowledgments per second since start.
func (m *Monitor) Rate() float64 {
	return rate(m.total.Load(), m.elapsed())
}

// Snapshot returns the counters, the elapsed time and the rate.
func (m *Monitor) Snapshot() Snapshot {
	total := m.total.Load()
	elapsed := m.elapsed()
	return Snapshot{
		Total:   total,
		Indexed: m.indexed.Load(),
		Failed:  m.failed.Load(),
		Elapsed: elapsed,
		Rate:    rate(total, elapsed),
	}
}

// Reset zeroes the counters and restarts the clock.
func (m *Monitor) Reset() {
	m.total.Store(0)
	m.indexed.Store(0)
	m.failed.Store(0)
	m.start.Store(m.now().UnixNano())
}

func (m *Monitor) elapsed() time.Duration {
	return time.Duration(m.now().UnixNano() - m.start.Load())
}

func rate(n uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}
