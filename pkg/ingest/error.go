package ingest

import "errors"

var (
	// ErrChannelClosed is returned once a direction of the channel is closed
	// and, for readers, fully drained.
	ErrChannelClosed = errors.New("ingest channel closed")

	// ErrCancelled marks documents that were not indexed because the stream
	// was torn down.
	ErrCancelled = errors.New(ReasonCancelled)

	// ErrDuplicateAck is returned when a consumer acknowledges an id that has
	// no outstanding document.
	ErrDuplicateAck = errors.New("duplicate acknowledgment")
)
