package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/glyph/pkg/eventstream"
	"github.com/papercomputeco/glyph/pkg/eventstream/kafka"
	"github.com/papercomputeco/glyph/pkg/ingest"
	glyphlogger "github.com/papercomputeco/glyph/pkg/logger"
)

type fakeWriter struct {
	msgs     []kafkago.Message
	deadline bool
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *kafka.Publisher
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = kafka.NewPublisherWithWriter(w, time.Second, glyphlogger.Nop())
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{}, glyphlogger.Nop())
		Expect(err).To(MatchError("kafka brokers are required"))
	})

	It("builds a writer without dialing", func() {
		pub, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, glyphlogger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects nil events", func() {
		Expect(p.PublishAck(context.Background(), nil)).To(MatchError(eventstream.ErrNilAckEvent))
	})

	It("writes one JSON message keyed by document id", func() {
		event := eventstream.NewAckEvent(eventstream.EventSource{StreamID: "s1"}, ingest.Indexed("doc-9"), 3, nil)
		Expect(p.PublishAck(context.Background(), event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("doc-9"))
		Expect(w.msgs[0].Headers).To(ContainElement(kafkago.Header{
			Key:   "event_type",
			Value: []byte(eventstream.EventTypeDocumentAcknowledged),
		}))
		Expect(w.deadline).To(BeTrue())

		var decoded eventstream.AckEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Source.StreamID).To(Equal("s1"))
	})

	It("wraps writer errors", func() {
		w.err = errors.New("broker down")
		event := eventstream.NewAckEvent(eventstream.EventSource{}, ingest.Indexed("doc-1"), 3, nil)
		err := p.PublishAck(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
