package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls the Indexer service.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient creates a client for target. Plaintext transport and the JSON
// codec are applied before opts, so opts can override the credentials.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	}

	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating grpc client for %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// IndexTexts opens an ingestion stream. The caller sends documents, calls
// CloseSend, and reads responses until io.EOF.
func (c *Client) IndexTexts(ctx context.Context, opts ...grpc.CallOption) (IndexTextsClient, error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], IndexTextsMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[IndexRequest, IndexResponse]{ClientStream: stream}, nil
}

// Search runs a unary query.
func (c *Client) Search(ctx context.Context, req *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.conn.Invoke(ctx, SearchMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedSingle returns the server's embedding of req.Text.
func (c *Client) EmbedSingle(ctx context.Context, req *EmbedSingleRequest, opts ...grpc.CallOption) (*EmbedSingleResponse, error) {
	out := new(EmbedSingleResponse)
	if err := c.conn.Invoke(ctx, EmbedSingleMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
