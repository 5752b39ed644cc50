package server

import (
	"context"

	"google.golang.org/grpc"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "glyph.v1.Indexer"

	IndexTextsMethod  = "/" + ServiceName + "/IndexTexts"
	SearchMethod      = "/" + ServiceName + "/Search"
	EmbedSingleMethod = "/" + ServiceName + "/EmbedSingle"
)

type (
	// IndexTextsServer is the server side of the IndexTexts stream.
	IndexTextsServer = grpc.BidiStreamingServer[IndexRequest, IndexResponse]

	// IndexTextsClient is the client side of the IndexTexts stream.
	IndexTextsClient = grpc.BidiStreamingClient[IndexRequest, IndexResponse]
)

// IndexerServer is implemented by *Server.
type IndexerServer interface {
	IndexTexts(stream IndexTextsServer) error
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
	EmbedSingle(ctx context.Context, req *EmbedSingleRequest) (*EmbedSingleResponse, error)
}

// ServiceDesc describes glyph.v1.Indexer for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IndexerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Search",
			Handler:    searchHandler,
		},
		{
			MethodName: "EmbedSingle",
			Handler:    embedSingleHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "IndexTexts",
			Handler:       indexTextsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "glyph/v1/indexer",
}

func searchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IndexerServer).Search(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SearchMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IndexerServer).Search(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func embedSingleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EmbedSingleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IndexerServer).EmbedSingle(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: EmbedSingleMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IndexerServer).EmbedSingle(ctx, req.(*EmbedSingleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func indexTextsHandler(srv any, stream grpc.ServerStream) error {
	return srv.(IndexerServer).IndexTexts(&grpc.GenericServerStream[IndexRequest, IndexResponse]{ServerStream: stream})
}
