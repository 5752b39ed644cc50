package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/glyph/pkg/ingest"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentAcknowledged is emitted once per acknowledged document.
	EventTypeDocumentAcknowledged = "glyph.document.acknowledged"
)

// AckEvent is a transport-neutral event payload for an acknowledged document.
type AckEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Document      DocumentAck `json:"document"`
}

// EventSource identifies the stream the document arrived on.
type EventSource struct {
	StreamID string `json:"stream_id"`
	Node     string `json:"node,omitempty"`
}

// DocumentAck is the acknowledgment itself.
type DocumentAck struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Dimensions int               `json:"dimensions,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewAckEvent builds an AckEvent for ack with a fresh event id.
func NewAckEvent(src EventSource, ack ingest.Ack, dims int, metadata map[string]string) *AckEvent {
	return &AckEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentAcknowledged,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        src,
		Document: DocumentAck{
			ID:         ack.ID,
			Status:     ack.Status.String(),
			Reason:     ack.Reason,
			Dimensions: dims,
			Metadata:   metadata,
		},
	}
}
