package ingest

import "errors"

// Document is a unit of text submitted for indexing. IDs are chosen by the
// producer and must be unique among the documents in flight on one channel.
type Document struct {
	ID       string            `json:"document_id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Status is the terminal outcome of a document.
type Status int

const (
	StatusIndexed Status = iota
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIndexed:
		return "indexed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reasons attached to failed acknowledgments that do not come from an error.
const (
	ReasonCancelled = "cancelled"
	ReasonEmptyText = "empty text"
)

// Ack is the acknowledgment emitted exactly once per accepted document.
type Ack struct {
	ID     string
	Status Status
	Reason string
}

// Indexed builds a successful acknowledgment.
func Indexed(id string) Ack {
	return Ack{ID: id, Status: StatusIndexed}
}

// Failed builds a failed acknowledgment carrying reason.
func Failed(id, reason string) Ack {
	return Ack{ID: id, Status: StatusFailed, Reason: reason}
}

// OK reports whether the document was indexed.
func (a Ack) OK() bool {
	return a.Status == StatusIndexed
}

// Err returns nil for indexed documents, ErrCancelled for documents dropped
// by cancellation and an error carrying the reason otherwise.
func (a Ack) Err() error {
	switch {
	case a.OK():
		return nil
	case a.Reason == ReasonCancelled:
		return ErrCancelled
	default:
		return errors.New(a.Reason)
	}
}
