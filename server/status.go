package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/glyph/pkg/ingest"
	"github.com/papercomputeco/glyph/pkg/search"
	"github.com/papercomputeco/glyph/pkg/vector"
)

// toStatus maps glyph sentinel errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, vector.ErrDimensionMismatch), errors.Is(err, search.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ingest.ErrCancelled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, vector.ErrEmbedding),
		errors.Is(err, vector.ErrStore),
		errors.Is(err, vector.ErrConnection),
		errors.Is(err, ingest.ErrChannelClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
