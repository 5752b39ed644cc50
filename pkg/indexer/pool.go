// Package indexer drains ingest channels: each document is embedded, checked
// against the configured dimension, upserted into the vector store and
// acknowledged exactly once.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/papercomputeco/glyph/pkg/embeddings"
	"github.com/papercomputeco/glyph/pkg/eventstream"
	"github.com/papercomputeco/glyph/pkg/ingest"
	"github.com/papercomputeco/glyph/pkg/vector"
)

var defaultNumWorkers uint = 4

// Observer receives every acknowledgment. *monitor.Monitor and
// *monitor.Reporter satisfy it.
type Observer interface {
	Observe(ack ingest.Ack) uint64
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Embedder turns document text into vectors.
	Embedder embeddings.Embedder

	// VectorDriver stores the embeddings.
	VectorDriver vector.Driver

	// Dimensions every embedding must have.
	Dimensions uint

	// NumWorkers is the number of workers started per stream (defaults to 4).
	NumWorkers uint

	// MaxInflightEmbeds bounds concurrent Embed calls across all streams
	// served by the pool. Defaults to NumWorkers.
	MaxInflightEmbeds uint

	// Observer is notified of every acknowledgment. Optional.
	Observer Observer

	// Publisher receives an event per acknowledgment. Optional; errors are
	// logged and never change the acknowledgment.
	Publisher eventstream.Publisher

	// Node names this process in published events.
	Node string

	Logger *slog.Logger
}

// Pool indexes documents from any number of ingest channels.
type Pool struct {
	config *Config
	embeds *semaphore.Weighted
	logger *slog.Logger
}

// NewPool validates c and creates a Pool.
func NewPool(c *Config) (*Pool, error) {
	if c.Embedder == nil {
		return nil, errors.New("indexer requires an embedder")
	}
	if c.VectorDriver == nil {
		return nil, errors.New("indexer requires a vector driver")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("indexer requires embedding dimensions")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.NumWorkers > uint(math.MaxInt32) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int32", c.NumWorkers)
	}

	if c.MaxInflightEmbeds == 0 {
		c.MaxInflightEmbeds = c.NumWorkers
	}
	if c.MaxInflightEmbeds > uint(math.MaxInt32) {
		return nil, fmt.Errorf("MaxInflightEmbeds %d exceeds max int32", c.MaxInflightEmbeds)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Pool{
		config: c,
		embeds: semaphore.NewWeighted(int64(c.MaxInflightEmbeds)),
		logger: logger,
	}, nil
}

// Serve runs NumWorkers workers against ch until it is closed and drained,
// then finishes the channel so the producer sees the end of the ack stream.
//
// Cancelling ctx cancels ch: documents not yet indexed are acknowledged as
// failed(cancelled). Serve returns ingest.ErrCancelled in that case and nil
// after a clean drain.
func (p *Pool) Serve(ctx context.Context, ch *ingest.Channel, streamID string) error {
	log := p.logger.With("stream_id", streamID)
	log.Debug("stream started", "workers", p.config.NumWorkers, "capacity", ch.Capacity())

	stop := context.AfterFunc(ctx, ch.Cancel)
	defer stop()

	// Workers must keep receiving after ctx is done so every queued document
	// still gets its terminal acknowledgment.
	recvCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := range p.config.NumWorkers {
		g.Go(func() error {
			return p.worker(ctx, recvCtx, ch, streamID, i, log)
		})
	}

	err := g.Wait()
	ch.Finish()

	if ch.IsCancelled() {
		log.Info("stream cancelled")
		return ingest.ErrCancelled
	}
	if err != nil {
		return err
	}

	log.Debug("stream drained")
	return nil
}

func (p *Pool) worker(ctx, recvCtx context.Context, ch *ingest.Channel, streamID string, id uint, log *slog.Logger) error {
	log.Debug("worker started", "worker_id", id)
	defer log.Debug("worker stopped", "worker_id", id)

	for {
		doc, err := ch.Receive(recvCtx)
		if errors.Is(err, ingest.ErrChannelClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		ack := p.process(ctx, ch, doc, log)
		if err := ch.Ack(ack); err != nil {
			// Only a broken consumer contract gets here.
			return fmt.Errorf("acknowledging %q: %w", doc.ID, err)
		}
		p.observe(ctx, streamID, ack, doc, log)
	}
}

// process turns one document into its acknowledgment.
func (p *Pool) process(ctx context.Context, ch *ingest.Channel, doc ingest.Document, log *slog.Logger) ingest.Ack {
	if ctx.Err() != nil || ch.IsCancelled() {
		return ingest.Failed(doc.ID, ingest.ReasonCancelled)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return ingest.Failed(doc.ID, ingest.ReasonEmptyText)
	}

	embedding, err := p.embed(ctx, doc.Text)
	if err != nil {
		if ctx.Err() != nil {
			return ingest.Failed(doc.ID, ingest.ReasonCancelled)
		}
		log.Warn("failed to generate embedding", "document_id", doc.ID, "error", err)
		return ingest.Failed(doc.ID, err.Error())
	}

	if err := vector.CheckDimensions(embedding, p.config.Dimensions); err != nil {
		log.Warn("embedding has wrong dimension", "document_id", doc.ID, "error", err)
		return ingest.Failed(doc.ID, err.Error())
	}

	err = p.config.VectorDriver.Add(ctx, []vector.Document{{
		ID:        doc.ID,
		Embedding: embedding,
		Metadata:  doc.Metadata,
	}})
	if err != nil {
		if ctx.Err() != nil {
			return ingest.Failed(doc.ID, ingest.ReasonCancelled)
		}
		log.Warn("failed to store embedding", "document_id", doc.ID, "error", err)
		return ingest.Failed(doc.ID, err.Error())
	}

	log.Debug("indexed document", "document_id", doc.ID, "embedding_dim", len(embedding))
	return ingest.Indexed(doc.ID)
}

func (p *Pool) embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.embeds.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.embeds.Release(1)

	embedding, err := p.config.Embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, vector.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, err)
	}
	return embedding, nil
}

func (p *Pool) observe(ctx context.Context, streamID string, ack ingest.Ack, doc ingest.Document, log *slog.Logger) {
	if p.config.Observer != nil {
		p.config.Observer.Observe(ack)
	}

	if p.config.Publisher == nil {
		return
	}

	dims := 0
	if ack.OK() {
		dims = int(p.config.Dimensions)
	}
	event := eventstream.NewAckEvent(
		eventstream.EventSource{StreamID: streamID, Node: p.config.Node},
		ack, dims, doc.Metadata,
	)
	if err := p.config.Publisher.PublishAck(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("failed to publish ack event", "document_id", ack.ID, "error", err)
	}
}
