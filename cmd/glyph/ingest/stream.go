package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/papercomputeco/glyph/pkg/cliui"
	"github.com/papercomputeco/glyph/pkg/ingest"
	"github.com/papercomputeco/glyph/pkg/monitor"
	"github.com/papercomputeco/glyph/server"
)

// Summary describes one finished stream.
type Summary struct {
	Sent    uint64
	Indexed uint64
	Failed  uint64
	Elapsed time.Duration
	Rate    float64
}

type streamer struct {
	client      *server.Client
	reportEvery uint64
	out         io.Writer
	logger      *slog.Logger

	// onAck, when set, is called from the receiving goroutine for every
	// response.
	onAck func(resp *server.IndexResponse)
}

// stream sends every document on one IndexTexts stream while a second
// goroutine consumes responses, then waits for the server to half-close.
func (s *streamer) stream(ctx context.Context, docs iter.Seq[server.IndexRequest]) (Summary, error) {
	mon := monitor.New()

	stream, err := s.client.IndexTexts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("opening stream: %w", err)
	}

	recvDone := make(chan error, 1)
	go func() {
		recvDone <- s.receive(stream, mon)
	}()

	var (
		sent    uint64
		sendErr error
	)
	for doc := range docs {
		if err := stream.Send(&doc); err != nil {
			sendErr = err
			break
		}
		sent++
	}
	if sendErr == nil {
		sendErr = stream.CloseSend()
	}

	recvErr := <-recvDone

	snap := mon.Snapshot()
	summary := Summary{
		Sent:    sent,
		Indexed: snap.Indexed,
		Failed:  snap.Failed,
		Elapsed: snap.Elapsed,
		Rate:    snap.Rate,
	}

	// A failed Send reports io.EOF; the stream status comes from Recv.
	if recvErr != nil {
		return summary, fmt.Errorf("receiving acknowledgments: %w", recvErr)
	}
	if sendErr != nil && !errors.Is(sendErr, io.EOF) {
		return summary, fmt.Errorf("sending documents: %w", sendErr)
	}
	return summary, nil
}

func (s *streamer) receive(stream server.IndexTextsClient, mon *monitor.Monitor) error {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		ack := ingest.Indexed(resp.DocumentID)
		if !resp.Success {
			ack = ingest.Failed(resp.DocumentID, resp.Error)
			s.logger.Debug("document failed", "document_id", resp.DocumentID, "reason", resp.Error)
		}
		n := mon.Observe(ack)

		if s.onAck != nil {
			s.onAck(resp)
		}

		if s.reportEvery > 0 && n%s.reportEvery == 0 {
			fmt.Fprintf(s.out, "  received %d responses, rate %s\n", n, cliui.FormatRate(mon.Rate()))
		}
	}
}
