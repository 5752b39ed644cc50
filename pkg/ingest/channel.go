// Package ingest provides the bounded duplex channel that carries documents
// from a producer to the indexing workers and acknowledgments back.
//
// A document holds one unit of capacity from the moment Send accepts it until
// the producer consumes its acknowledgment with RecvAck. Send blocks while the
// channel is at capacity, so a slow consumer or a producer that stops reading
// acknowledgments both throttle the producer. Nothing is ever dropped.
package ingest

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// DefaultCapacity is used when NewChannel is given a non-positive capacity.
const DefaultCapacity = 256

// Channel is safe for concurrent use by multiple producers and consumers.
type Channel struct {
	capacity int

	// slots holds one token per in-flight document.
	slots chan struct{}
	docs  chan Document
	acks  chan Ack

	mu          sync.Mutex
	sendClosed  bool
	finished    bool
	outstanding map[string]int

	closed    chan struct{}
	cancelled chan struct{}

	cancelOnce sync.Once
}

// NewChannel creates a channel admitting at most capacity in-flight documents.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		capacity:    capacity,
		slots:       make(chan struct{}, capacity),
		docs:        make(chan Document, capacity),
		acks:        make(chan Ack, capacity),
		outstanding: make(map[string]int),
		closed:      make(chan struct{}),
		cancelled:   make(chan struct{}),
	}
}

// Capacity returns the in-flight bound.
func (c *Channel) Capacity() int {
	return c.capacity
}

// InFlight returns the number of documents sent whose acknowledgment has not
// been consumed yet.
func (c *Channel) InFlight() int {
	return len(c.slots)
}

// Send enqueues doc, blocking while the channel is at capacity. It returns
// ErrChannelClosed once the send direction is closed and ctx.Err() if ctx is
// done first.
func (c *Channel) Send(ctx context.Context, doc Document) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}

	select {
	case c.slots <- struct{}{}:
	case <-c.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendClosed {
		<-c.slots
		return ErrChannelClosed
	}

	c.outstanding[doc.ID]++
	// Cannot block: every queued document holds a slot.
	c.docs <- doc
	return nil
}

// CloseSend marks the end of input. Queued documents are still delivered and
// their acknowledgments still drain. Safe to call more than once.
func (c *Channel) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.docs)
	close(c.closed)
}

// Cancel closes the send direction and flags the channel as cancelled.
// Consumers acknowledge whatever is still queued as failed(cancelled).
func (c *Channel) Cancel() {
	c.cancelOnce.Do(func() {
		close(c.cancelled)
	})
	c.CloseSend()
}

// Cancelled is closed when Cancel has been called.
func (c *Channel) Cancelled() <-chan struct{} {
	return c.cancelled
}

// IsCancelled reports whether Cancel has been called.
func (c *Channel) IsCancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}

// Receive returns the next queued document, blocking while none is
// available. It returns ErrChannelClosed once the send direction is closed
// and every queued document has been received.
func (c *Channel) Receive(ctx context.Context) (Document, error) {
	select {
	case doc, ok := <-c.docs:
		if !ok {
			return Document{}, ErrChannelClosed
		}
		return doc, nil
	case <-ctx.Done():
		return Document{}, ctx.Err()
	}
}

// Ack emits the acknowledgment for a received document. It never blocks.
func (c *Channel) Ack(ack Ack) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return ErrChannelClosed
	}

	n := c.outstanding[ack.ID]
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateAck, ack.ID)
	}
	if n == 1 {
		delete(c.outstanding, ack.ID)
	} else {
		c.outstanding[ack.ID] = n - 1
	}

	// Cannot block: unconsumed acks never exceed the in-flight bound.
	c.acks <- ack
	return nil
}

// Finish closes the acknowledgment direction. Consumers call it after their
// last Ack; producers then see ErrChannelClosed from RecvAck once the
// remaining acknowledgments are consumed. Finish also closes the send
// direction so that blocked producers wake up.
func (c *Channel) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return
	}
	c.finished = true
	close(c.acks)

	if !c.sendClosed {
		c.sendClosed = true
		close(c.docs)
		close(c.closed)
	}
}

// RecvAck returns the next acknowledgment and releases its document's slot.
func (c *Channel) RecvAck(ctx context.Context) (Ack, error) {
	select {
	case ack, ok := <-c.acks:
		if !ok {
			return Ack{}, ErrChannelClosed
		}
		<-c.slots
		return ack, nil
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}

// Acks yields acknowledgments until the channel is finished and drained or
// ctx is done.
func (c *Channel) Acks(ctx context.Context) iter.Seq[Ack] {
	return func(yield func(Ack) bool) {
		for {
			ack, err := c.RecvAck(ctx)
			if err != nil {
				return
			}
			if !yield(ack) {
				return
			}
		}
	}
}
