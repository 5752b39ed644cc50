// Package vectorutils builds vector.Driver implementations from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/glyph/pkg/vector"
	"github.com/papercomputeco/glyph/pkg/vector/chroma"
	"github.com/papercomputeco/glyph/pkg/vector/inmemory"
	"github.com/papercomputeco/glyph/pkg/vector/pgvector"
	"github.com/papercomputeco/glyph/pkg/vector/qdrant"
	"github.com/papercomputeco/glyph/pkg/vector/sqlitevec"
)

// Supported provider names.
const (
	ProviderInMemory = "inmemory"
	ProviderSQLite   = "sqlite"
	ProviderChroma   = "chroma"
	ProviderQdrant   = "qdrant"
	ProviderPgvector = "pgvector"
)

type NewVectorDriverOpts struct {
	ProviderType   string
	TargetURL      string
	CollectionName string
	SQLitePath     string
	Dimensions     uint
	Logger         *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderInMemory, "":
		return inmemory.NewDriver(), nil
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.SQLitePath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.CollectionName,
		}, o.Logger)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			Addr:           o.TargetURL,
			CollectionName: o.CollectionName,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderPgvector:
		// TargetURL is the PostgreSQL DSN and the collection names the table.
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.TargetURL,
			Table:      o.CollectionName,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
