// Package server exposes the indexing pipeline and the query path as the
// glyph.v1.Indexer gRPC service.
//
// Each IndexTexts stream gets its own ingest.Channel served by the shared
// indexer.Pool. The stream's receive loop only reads the next message after
// the channel accepts the previous one, so a full channel stops draining the
// HTTP/2 window and the client's Send blocks.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/glyph/pkg/indexer"
	"github.com/papercomputeco/glyph/pkg/ingest"
	"github.com/papercomputeco/glyph/pkg/search"
	"github.com/papercomputeco/glyph/pkg/vector"
)

// DefaultShutdownGrace bounds how long Close waits for open streams.
const DefaultShutdownGrace = 10 * time.Second

// Config is the configuration for a Server.
type Config struct {
	// ListenAddr is the TCP address used by Run.
	ListenAddr string

	Pool   *indexer.Pool
	Search *search.Service

	// Capacity is the in-flight bound of each stream's channel.
	Capacity int

	// ShutdownGrace is how long Close lets open streams finish before
	// cancelling them. Defaults to DefaultShutdownGrace.
	ShutdownGrace time.Duration

	// ServerOptions are appended to the defaults.
	ServerOptions []grpc.ServerOption

	Logger *slog.Logger
}

// Stats are process-lifetime stream counters.
type Stats struct {
	ActiveStreams int64  `json:"active_streams"`
	Streams       uint64 `json:"streams"`
	Accepted      uint64 `json:"accepted"`
	Acknowledged  uint64 `json:"acknowledged"`
}

// Server implements IndexerServer.
type Server struct {
	config Config
	grpc   *grpc.Server
	logger *slog.Logger

	active       atomic.Int64
	streams      atomic.Uint64
	accepted     atomic.Uint64
	acknowledged atomic.Uint64
}

// New creates a Server and registers the Indexer service.
func New(c Config) (*Server, error) {
	if c.Pool == nil {
		return nil, errors.New("server requires an indexer pool")
	}
	if c.Search == nil {
		return nil, errors.New("server requires a search service")
	}
	if c.Capacity <= 0 {
		c.Capacity = ingest.DefaultCapacity
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.ChainUnaryInterceptor(unaryLogger(logger)),
		grpc.ChainStreamInterceptor(streamLogger(logger)),
	}
	opts = append(opts, c.ServerOptions...)

	s := &Server{
		config: c,
		grpc:   grpc.NewServer(opts...),
		logger: logger,
	}
	s.grpc.RegisterService(&ServiceDesc, s)

	return s, nil
}

// Run listens on the configured address and serves until Close.
func (s *Server) Run() error {
	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.ListenAddr, err)
	}
	return s.RunWithListener(lis)
}

// RunWithListener serves on the provided listener.
func (s *Server) RunWithListener(lis net.Listener) error {
	s.logger.Info("starting grpc server",
		"listen", lis.Addr().String(),
		"service", ServiceName,
		"capacity", s.config.Capacity,
	)

	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Close stops accepting streams and waits up to ShutdownGrace for open ones
// to finish. Streams still open after that are stopped as by Stop, so Close
// always returns.
func (s *Server) Close() error {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(s.config.ShutdownGrace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.logger.Warn("shutdown grace expired, cancelling open streams",
			"active_streams", s.active.Load(),
			"grace", s.config.ShutdownGrace,
		)
		s.grpc.Stop()
		<-done
	}
	return nil
}

// Stop closes all streams immediately. Their channels are cancelled, so every
// accepted document is still acknowledged before the pool returns.
func (s *Server) Stop() {
	s.grpc.Stop()
}

// Stats returns a snapshot of the stream counters.
func (s *Server) Stats() Stats {
	return Stats{
		ActiveStreams: s.active.Load(),
		Streams:       s.streams.Load(),
		Accepted:      s.accepted.Load(),
		Acknowledged:  s.acknowledged.Load(),
	}
}

// IndexTexts receives documents, hands them to the pool and streams back one
// response per document. It returns only after every accepted document has
// been acknowledged.
func (s *Server) IndexTexts(stream IndexTextsServer) error {
	ctx := stream.Context()
	streamID := uuid.NewString()
	log := s.logger.With("stream_id", streamID)

	s.active.Add(1)
	s.streams.Add(1)
	defer s.active.Add(-1)

	ch := ingest.NewChannel(s.config.Capacity)

	poolErr := make(chan error, 1)
	go func() {
		poolErr <- s.config.Pool.Serve(ctx, ch, streamID)
	}()

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- s.receive(ctx, stream, ch)
	}()

	sent, sendErr := s.respond(stream, ch)

	rerr := <-recvErr
	perr := <-poolErr

	log.Debug("stream closed", "responses", sent)

	switch {
	case rerr != nil:
		return toStatus(rerr)
	case perr != nil:
		return toStatus(perr)
	case sendErr != nil:
		return toStatus(sendErr)
	}
	return nil
}

// receive feeds the channel until the client half-closes or the stream fails.
func (s *Server) receive(ctx context.Context, stream IndexTextsServer, ch *ingest.Channel) error {
	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			ch.CloseSend()
			return nil
		}
		if err != nil {
			ch.Cancel()
			return err
		}

		doc := ingest.Document{
			ID:       req.DocumentID,
			Text:     req.Text,
			Metadata: req.Metadata,
		}
		if err := ch.Send(ctx, doc); err != nil {
			ch.Cancel()
			if errors.Is(err, ingest.ErrChannelClosed) && ch.IsCancelled() {
				return ingest.ErrCancelled
			}
			return err
		}
		s.accepted.Add(1)
	}
}

// respond forwards acknowledgments until the pool finishes the channel.
// Once a send fails the remaining acknowledgments are still consumed so the
// pool can drain.
func (s *Server) respond(stream IndexTextsServer, ch *ingest.Channel) (int, error) {
	// Acks must drain even after the stream context is done.
	ctx := context.WithoutCancel(stream.Context())

	var (
		sent    int
		sendErr error
	)
	for ack := range ch.Acks(ctx) {
		s.acknowledged.Add(1)
		if sendErr != nil {
			continue
		}

		resp := &IndexResponse{
			DocumentID: ack.ID,
			Success:    ack.OK(),
			Error:      ack.Reason,
		}
		if err := stream.Send(resp); err != nil {
			sendErr = err
			ch.Cancel()
			continue
		}
		sent++
	}
	return sent, sendErr
}

// Search runs a k-NN query by vector, or by query text when no vector is
// given.
func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	limit := int(req.Limit)

	var (
		results []search.Result
		err     error
	)
	if len(req.Vector) == 0 && req.Query != "" {
		var out *search.SearchOutput
		out, err = s.config.Search.SearchText(ctx, req.Query, limit)
		if out != nil {
			results = out.Results
		}
	} else {
		results, err = s.config.Search.Search(ctx, req.Vector, limit)
	}
	if err != nil {
		s.logger.Debug("search failed", "error", err)
		return nil, toStatus(err)
	}

	resp := &SearchResponse{Results: make([]SearchResult, len(results))}
	for i, r := range results {
		resp.Results[i] = SearchResult{
			ID:       r.ID,
			Score:    r.Score,
			Metadata: r.Metadata,
		}
	}
	return resp, nil
}

// EmbedSingle embeds one text with the server's embedder.
func (s *Server) EmbedSingle(ctx context.Context, req *EmbedSingleRequest) (*EmbedSingleResponse, error) {
	v, err := s.config.Search.Embed(ctx, req.Text)
	switch {
	case errors.Is(err, vector.ErrDimensionMismatch):
		// the model disagrees with the configured dimension
		return nil, status.Error(codes.Internal, err.Error())
	case err != nil:
		s.logger.Debug("embed failed", "error", err)
		return nil, toStatus(err)
	}
	return &EmbedSingleResponse{Vector: v}, nil
}
