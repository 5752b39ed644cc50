// Package kafka publishes acknowledgment events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/glyph/pkg/eventstream"
)

const (
	// DefaultTopic receives acknowledgment events when no topic is configured.
	DefaultTopic = "glyph.acks"

	defaultWriteTimeout = 5 * time.Second
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Defaults to five seconds.
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes one message per event, keyed by document id so that
// events for the same document land on the same partition.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher creates a synchronous Kafka publisher.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		Async:        false,
	}

	logger.Info("kafka publisher initialized", "brokers", c.Brokers, "topic", topic)
	return newPublisher(w, c.WriteTimeout, logger), nil
}

func newPublisher(w messageWriter, timeout time.Duration, logger *slog.Logger) *Publisher {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Publisher{writer: w, timeout: timeout, logger: logger}
}

// PublishAck encodes event as JSON and writes it.
func (p *Publisher) PublishAck(ctx context.Context, event *eventstream.AckEvent) error {
	if event == nil {
		return eventstream.ErrNilAckEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding ack event: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(wctx, kafkago.Message{
		Key:   []byte(event.Document.ID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.EmittedAt,
	})
	if err != nil {
		return fmt.Errorf("writing ack event %s: %w", event.EventID, err)
	}

	p.logger.Debug("published ack event", "event_id", event.EventID, "document_id", event.Document.ID)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
