// Package qdrant provides a Qdrant vector database driver over its gRPC API.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/papercomputeco/glyph/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for glyph points.
	DefaultCollectionName = "glyph"

	// idPayloadKey holds the caller's document id. Qdrant only accepts
	// unsigned integers or UUIDs as point ids.
	idPayloadKey = "_glyph_id"
)

// pointNamespace seeds the name-based UUIDs derived from document ids.
var pointNamespace = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Addr is the Qdrant gRPC address (e.g., "localhost:6334").
	Addr string

	// CollectionName defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the vector size used when the collection is created.
	Dimensions uint

	// DialOptions replace the default insecure transport credentials.
	DialOptions []grpc.DialOption
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	logger      *slog.Logger
}

// NewDriver connects to Qdrant and makes sure the collection exists.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Addr == "" {
		return nil, errors.New("qdrant address is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant collection dimensions are required")
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	opts := c.DialOptions
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}

	conn, err := grpc.NewClient(c.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant connect: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		logger:      logger,
	}

	if err := d.ensureCollection(ctx, c.Dimensions); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("qdrant driver initialized",
		"addr", c.Addr,
		"collection", collection,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *Driver) ensureCollection(ctx context.Context, dims uint) error {
	exists, err := d.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: d.collection,
	})
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, d.collection, err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = d.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{
				Size:     uint64(dims),
				Distance: pb.Distance_Cosine,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", vector.ErrStore, d.collection, err)
	}

	d.logger.Debug("created qdrant collection", "collection", d.collection)
	return nil
}

// PointID maps a document id onto the UUID used as its Qdrant point id.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

func pointID(docID string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(docID)}}
}

// Add upserts documents as points. The original id travels in the payload.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(docs))
	for i, doc := range docs {
		payload := map[string]*pb.Value{
			idPayloadKey: {Kind: &pb.Value_StringValue{StringValue: doc.ID}},
		}
		for k, v := range doc.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: doc.Embedding}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := d.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant upsert: %v", vector.ErrStore, err)
	}

	d.logger.Debug("upserted points to qdrant", "count", len(docs))
	return nil
}

// Query returns the topK nearest points by cosine similarity. Ties come back
// in the order Qdrant scores them, not by insertion.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	resp, err := d.points.Search(ctx, &pb.SearchPoints{
		CollectionName: d.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant search: %v", vector.ErrStore, err)
	}

	results := make([]vector.QueryResult, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		id, meta := splitPayload(pt.GetPayload())
		results = append(results, vector.QueryResult{
			Document: vector.Document{ID: id, Metadata: meta},
			Score:    pt.GetScore(),
		})
	}
	return results, nil
}

// Get retrieves points by document id, with their vectors.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return []vector.Document{}, nil
	}

	pids := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(id)
	}

	resp, err := d.points.Get(ctx, &pb.GetPoints{
		CollectionName: d.collection,
		Ids:            pids,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant get: %v", vector.ErrStore, err)
	}

	docs := make([]vector.Document, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		id, meta := splitPayload(pt.GetPayload())
		docs = append(docs, vector.Document{
			ID:        id,
			Embedding: pt.GetVectors().GetVector().GetData(),
			Metadata:  meta,
		})
	}
	return docs, nil
}

// Delete removes points by document id.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pids := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(id)
	}

	wait := true
	_, err := d.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Points{
			Points: &pb.PointsIdsList{Ids: pids},
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant delete: %v", vector.ErrStore, err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.conn.Close()
}

func splitPayload(payload map[string]*pb.Value) (string, map[string]string) {
	var (
		id   string
		meta map[string]string
	)
	for k, v := range payload {
		if k == idPayloadKey {
			id = v.GetStringValue()
			continue
		}
		if meta == nil {
			meta = make(map[string]string, len(payload))
		}
		meta[k] = v.GetStringValue()
	}
	return id, meta
}

var _ vector.Driver = (*Driver)(nil)
