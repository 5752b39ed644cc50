package monitor

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/glyph/pkg/ingest"
)

// DefaultReportEvery matches the progress cadence of the ingest client.
const DefaultReportEvery = 1000

// Reporter wraps a Monitor and logs progress every N acknowledgments.
type Reporter struct {
	*Monitor
	every  uint64
	logger *slog.Logger
}

// NewReporter creates a Reporter logging through logger every n acks.
// A zero n uses DefaultReportEvery.
func NewReporter(m *Monitor, n uint64, logger *slog.Logger) *Reporter {
	if n == 0 {
		n = DefaultReportEvery
	}
	return &Reporter{Monitor: m, every: n, logger: logger}
}

// Observe records ack and logs when the total crosses a multiple of N.
func (r *Reporter) Observe(ack ingest.Ack) uint64 {
	total := r.Monitor.Observe(ack)
	if total%r.every == 0 {
		s := r.Snapshot()
		r.logger.Info("ingest progress",
			"acks", s.Total,
			"indexed", s.Indexed,
			"failed", s.Failed,
			"elapsed", s.Elapsed.Round(time.Millisecond).String(),
			"rate", s.Rate,
		)
	}
	return total
}
