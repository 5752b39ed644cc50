package qdrant_test

import (
	"context"
	"net"
	"sort"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	glyphlogger "github.com/papercomputeco/glyph/pkg/logger"
	"github.com/papercomputeco/glyph/pkg/vector"
	"github.com/papercomputeco/glyph/pkg/vector/qdrant"
)

type storedPoint struct {
	vec     []float32
	payload map[string]*pb.Value
}

// fakeQdrant is an in-process Qdrant points service over bufconn.
type fakeQdrant struct {
	pb.UnimplementedPointsServer

	mu      sync.Mutex
	created []*pb.CreateCollection
	exists  bool
	points  map[string]storedPoint
}

// fakeCollections shares state with fakeQdrant; the two services both
// declare Get and Delete.
type fakeCollections struct {
	pb.UnimplementedCollectionsServer
	q *fakeQdrant
}

func (f fakeCollections) CollectionExists(_ context.Context, _ *pb.CollectionExistsRequest) (*pb.CollectionExistsResponse, error) {
	f.q.mu.Lock()
	defer f.q.mu.Unlock()
	return &pb.CollectionExistsResponse{Result: &pb.CollectionExists{Exists: f.q.exists}}, nil
}

func (f fakeCollections) Create(_ context.Context, req *pb.CreateCollection) (*pb.CollectionOperationResponse, error) {
	f.q.mu.Lock()
	defer f.q.mu.Unlock()
	f.q.created = append(f.q.created, req)
	f.q.exists = true
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *pb.UpsertPoints) (*pb.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range req.GetPoints() {
		f.points[p.GetId().GetUuid()] = storedPoint{
			vec:     p.GetVectors().GetVector().GetData(),
			payload: p.GetPayload(),
		}
	}
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakeQdrant) Search(_ context.Context, req *pb.SearchPoints) (*pb.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*pb.ScoredPoint
	for id, p := range f.points {
		out = append(out, &pb.ScoredPoint{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
			Payload: p.payload,
			Score:   vector.CosineSimilarity(req.GetVector(), p.vec),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GetScore() > out[j].GetScore() })
	if uint64(len(out)) > req.GetLimit() {
		out = out[:req.GetLimit()]
	}
	return &pb.SearchResponse{Result: out}, nil
}

func (f *fakeQdrant) Get(_ context.Context, req *pb.GetPoints) (*pb.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*pb.RetrievedPoint
	for _, id := range req.GetIds() {
		if p, ok := f.points[id.GetUuid()]; ok {
			out = append(out, &pb.RetrievedPoint{Id: id, Payload: p.payload})
		}
	}
	return &pb.GetResponse{Result: out}, nil
}

func (f *fakeQdrant) Delete(_ context.Context, req *pb.DeletePoints) (*pb.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range req.GetPoints().GetPoints().GetIds() {
		delete(f.points, id.GetUuid())
	}
	return &pb.PointsOperationResponse{}, nil
}

var _ = Describe("Driver", func() {
	var (
		fake   *fakeQdrant
		srv    *grpc.Server
		lis    *bufconn.Listener
		driver *qdrant.Driver
		ctx    context.Context
	)

	newDriver := func() (*qdrant.Driver, error) {
		return qdrant.NewDriver(ctx, qdrant.Config{
			Addr:       "passthrough:///bufnet",
			Dimensions: 3,
			DialOptions: []grpc.DialOption{
				grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
					return lis.Dial()
				}),
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			},
		}, glyphlogger.Nop())
	}

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeQdrant{points: map[string]storedPoint{}}
		lis = bufconn.Listen(1 << 20)
		srv = grpc.NewServer()
		pb.RegisterPointsServer(srv, fake)
		pb.RegisterCollectionsServer(srv, fakeCollections{q: fake})
		go srv.Serve(lis) //nolint:errcheck

		var err error
		driver, err = newDriver()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
		srv.Stop()
	})

	It("creates the collection with the configured size", func() {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		Expect(fake.created).To(HaveLen(1))
		Expect(fake.created[0].GetCollectionName()).To(Equal(qdrant.DefaultCollectionName))
		Expect(fake.created[0].GetVectorsConfig().GetParams().GetSize()).To(Equal(uint64(3)))
	})

	It("does not recreate an existing collection", func() {
		d, err := newDriver()
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		fake.mu.Lock()
		defer fake.mu.Unlock()
		Expect(fake.created).To(HaveLen(1))
	})

	It("maps document ids to stable UUID point ids", func() {
		Expect(qdrant.PointID("doc-1")).To(Equal(qdrant.PointID("doc-1")))
		Expect(qdrant.PointID("doc-1")).NotTo(Equal(qdrant.PointID("doc-2")))
	})

	It("round-trips the original id and metadata through search", func() {
		err := driver.Add(ctx, []vector.Document{
			{ID: "doc-1", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"source": "a"}},
			{ID: "doc-2", Embedding: []float32{0, 1, 0}},
		})
		Expect(err).NotTo(HaveOccurred())

		results, err := driver.Query(ctx, []float32{1, 0, 0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("doc-1"))
		Expect(results[0].Metadata).To(HaveKeyWithValue("source", "a"))
		Expect(results[0].Metadata).NotTo(HaveKey("_glyph_id"))
		Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
	})

	It("overwrites a point re-added under the same id", func() {
		Expect(driver.Add(ctx, []vector.Document{{ID: "doc-1", Embedding: []float32{1, 0, 0}}})).To(Succeed())
		Expect(driver.Add(ctx, []vector.Document{{ID: "doc-1", Embedding: []float32{0, 0, 1}}})).To(Succeed())

		results, err := driver.Query(ctx, []float32{0, 0, 1}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-6))
	})

	It("gets and deletes by document id", func() {
		Expect(driver.Add(ctx, []vector.Document{{ID: "doc-1", Embedding: []float32{1, 0, 0}}})).To(Succeed())

		docs, err := driver.Get(ctx, []string{"doc-1", "missing"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].ID).To(Equal("doc-1"))

		Expect(driver.Delete(ctx, []string{"doc-1"})).To(Succeed())
		docs, err = driver.Get(ctx, []string{"doc-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(BeEmpty())
	})

	It("requires an address and dimensions", func() {
		_, err := qdrant.NewDriver(ctx, qdrant.Config{Dimensions: 3}, glyphlogger.Nop())
		Expect(err).To(HaveOccurred())
		_, err = qdrant.NewDriver(ctx, qdrant.Config{Addr: "localhost:6334"}, glyphlogger.Nop())
		Expect(err).To(HaveOccurred())
	})
})
