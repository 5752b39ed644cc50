package eventstream

import "errors"

// ErrNilAckEvent indicates a nil acknowledgment event was provided to a publisher.
var ErrNilAckEvent = errors.New("nil ack event")
