package ingest_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glyph/pkg/ingest"
)

func doc(id string) ingest.Document {
	return ingest.Document{ID: id, Text: "text " + id}
}

// echo acknowledges every received document as indexed, then finishes.
func echo(ch *ingest.Channel) {
	defer GinkgoRecover()
	for {
		d, err := ch.Receive(context.Background())
		if err != nil {
			ch.Finish()
			return
		}
		Expect(ch.Ack(ingest.Indexed(d.ID))).To(Succeed())
	}
}

var _ = Describe("Channel", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("defaults a non-positive capacity", func() {
		Expect(ingest.NewChannel(0).Capacity()).To(Equal(ingest.DefaultCapacity))
	})

	Describe("backpressure", func() {
		It("blocks the third send at capacity 2 until an ack is consumed", func() {
			ch := ingest.NewChannel(2)
			go echo(ch)

			Expect(ch.Send(ctx, doc("a"))).To(Succeed())
			Expect(ch.Send(ctx, doc("b"))).To(Succeed())

			sent := make(chan error, 1)
			go func() { sent <- ch.Send(ctx, doc("c")) }()

			Consistently(sent, 100*time.Millisecond).ShouldNot(Receive())
			Expect(ch.InFlight()).To(Equal(2))

			ack, err := ch.RecvAck(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ack.OK()).To(BeTrue())

			Eventually(sent).Should(Receive(BeNil()))
		})

		It("blocks while no acknowledgment has been consumed", func() {
			ch := ingest.NewChannel(1)
			Expect(ch.Send(ctx, doc("a"))).To(Succeed())

			sctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			Expect(ch.Send(sctx, doc("b"))).To(MatchError(context.DeadlineExceeded))
		})

		It("returns the context error when the caller gives up", func() {
			ch := ingest.NewChannel(1)
			Expect(ch.Send(ctx, doc("a"))).To(Succeed())

			cctx, cancel := context.WithCancel(ctx)
			sent := make(chan error, 1)
			go func() { sent <- ch.Send(cctx, doc("b")) }()
			cancel()

			Eventually(sent).Should(Receive(MatchError(context.Canceled)))
			Expect(ch.InFlight()).To(Equal(1))
		})
	})

	Describe("acknowledgments", func() {
		It("delivers exactly one ack per sent document", func() {
			ch := ingest.NewChannel(8)
			go echo(ch)

			const n = 100
			go func() {
				defer GinkgoRecover()
				for i := range n {
					Expect(ch.Send(ctx, doc(fmt.Sprint(i)))).To(Succeed())
				}
				ch.CloseSend()
			}()

			seen := map[string]int{}
			for ack := range ch.Acks(ctx) {
				seen[ack.ID]++
			}
			Expect(seen).To(HaveLen(n))
			for id, count := range seen {
				Expect(count).To(Equal(1), "id %s", id)
			}
		})

		It("drains all in-flight acks before reporting closed", func() {
			ch := ingest.NewChannel(4)
			for _, id := range []string{"a", "b", "c"} {
				Expect(ch.Send(ctx, doc(id))).To(Succeed())
			}
			ch.CloseSend()
			go echo(ch)

			var ids []string
			for {
				ack, err := ch.RecvAck(ctx)
				if err != nil {
					Expect(err).To(MatchError(ingest.ErrChannelClosed))
					break
				}
				ids = append(ids, ack.ID)
			}
			Expect(ids).To(ConsistOf("a", "b", "c"))
		})

		It("rejects duplicate acks", func() {
			ch := ingest.NewChannel(2)
			Expect(ch.Send(ctx, doc("a"))).To(Succeed())

			d, err := ch.Receive(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ch.Ack(ingest.Indexed(d.ID))).To(Succeed())
			Expect(ch.Ack(ingest.Indexed(d.ID))).To(MatchError(ingest.ErrDuplicateAck))
			Expect(ch.Ack(ingest.Indexed("never-sent"))).To(MatchError(ingest.ErrDuplicateAck))
		})

		It("rejects acks after Finish", func() {
			ch := ingest.NewChannel(2)
			Expect(ch.Send(ctx, doc("a"))).To(Succeed())
			ch.Finish()
			Expect(ch.Ack(ingest.Indexed("a"))).To(MatchError(ingest.ErrChannelClosed))
		})
	})

	Describe("closing", func() {
		It("is idempotent", func() {
			ch := ingest.NewChannel(2)
			ch.CloseSend()
			Expect(ch.CloseSend).NotTo(Panic())
			Expect(ch.Cancel).NotTo(Panic())
			Expect(ch.Cancel).NotTo(Panic())
		})

		It("rejects sends after close", func() {
			ch := ingest.NewChannel(2)
			ch.CloseSend()
			Expect(ch.Send(ctx, doc("a"))).To(MatchError(ingest.ErrChannelClosed))
		})

		It("wakes senders blocked on capacity", func() {
			ch := ingest.NewChannel(1)
			Expect(ch.Send(ctx, doc("a"))).To(Succeed())

			sent := make(chan error, 1)
			go func() { sent <- ch.Send(ctx, doc("b")) }()
			Consistently(sent, 50*time.Millisecond).ShouldNot(Receive())

			ch.CloseSend()
			Eventually(sent).Should(Receive(MatchError(ingest.ErrChannelClosed)))
		})

		It("wakes senders when the consumer finishes", func() {
			ch := ingest.NewChannel(1)
			Expect(ch.Send(ctx, doc("a"))).To(Succeed())

			sent := make(chan error, 1)
			go func() { sent <- ch.Send(ctx, doc("b")) }()
			Consistently(sent, 50*time.Millisecond).ShouldNot(Receive())

			ch.Finish()
			Eventually(sent).Should(Receive(MatchError(ingest.ErrChannelClosed)))
		})

		It("wakes blocked receivers", func() {
			ch := ingest.NewChannel(1)
			got := make(chan error, 1)
			go func() {
				_, err := ch.Receive(ctx)
				got <- err
			}()
			Consistently(got, 50*time.Millisecond).ShouldNot(Receive())

			ch.CloseSend()
			Eventually(got).Should(Receive(MatchError(ingest.ErrChannelClosed)))
		})

		It("delivers queued documents after close", func() {
			ch := ingest.NewChannel(2)
			Expect(ch.Send(ctx, doc("a"))).To(Succeed())
			ch.CloseSend()

			d, err := ch.Receive(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.ID).To(Equal("a"))

			_, err = ch.Receive(ctx)
			Expect(err).To(MatchError(ingest.ErrChannelClosed))
		})

		It("marks the channel cancelled", func() {
			ch := ingest.NewChannel(2)
			Expect(ch.IsCancelled()).To(BeFalse())
			ch.Cancel()
			Expect(ch.IsCancelled()).To(BeTrue())
			Expect(ch.Cancelled()).To(BeClosed())
			Expect(ch.Send(ctx, doc("a"))).To(MatchError(ingest.ErrChannelClosed))
		})
	})

	Describe("concurrent producers", func() {
		It("preserves each producer's order", func() {
			ch := ingest.NewChannel(16)

			const producers, perProducer = 4, 50
			var wg sync.WaitGroup
			for p := range producers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for i := range perProducer {
						Expect(ch.Send(ctx, doc(fmt.Sprintf("%d-%03d", p, i)))).To(Succeed())
					}
				}()
			}
			go func() {
				wg.Wait()
				ch.CloseSend()
			}()

			// Single consumer acks in receive order, so per-producer order
			// is observable on the ack side.
			go echo(ch)

			last := map[string]string{}
			for ack := range ch.Acks(ctx) {
				var p string
				fmt.Sscanf(ack.ID, "%1s-", &p)
				Expect(ack.ID > last[p]).To(BeTrue(), "out of order: %s after %s", ack.ID, last[p])
				last[p] = ack.ID
			}
			Expect(last).To(HaveLen(producers))
		})
	})
})

var _ = Describe("Ack", func() {
	It("reports success", func() {
		a := ingest.Indexed("x")
		Expect(a.OK()).To(BeTrue())
		Expect(a.Err()).NotTo(HaveOccurred())
		Expect(a.Status.String()).To(Equal("indexed"))
	})

	It("maps the cancelled reason onto ErrCancelled", func() {
		a := ingest.Failed("x", ingest.ReasonCancelled)
		Expect(a.OK()).To(BeFalse())
		Expect(a.Err()).To(MatchError(ingest.ErrCancelled))
		Expect(a.Status.String()).To(Equal("failed"))
	})

	It("carries other reasons", func() {
		a := ingest.Failed("x", "boom")
		Expect(a.Err()).To(MatchError("boom"))
	})
})
