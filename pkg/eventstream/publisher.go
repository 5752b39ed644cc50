package eventstream

import "context"

// Publisher publishes acknowledgment events to an event stream backend.
type Publisher interface {
	PublishAck(ctx context.Context, event *AckEvent) error
	Close() error
}
