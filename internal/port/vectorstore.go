package port

import (
	"context"

	"amplie/internal/domain"
)

// VectorStore writes catalog items into a named collection and queries it.
type VectorStore interface {
	// Upsert writes items into the collection, creating it if needed.
	// Stores that also implement Overwriter may keep an existing id unchanged.
	Upsert(ctx context.Context, collection string, items []domain.CatalogItem) (domain.UpsertResult, error)

	// Query returns at most k matches ordered by (distance, id).
	Query(ctx context.Context, collection string, policy domain.Policy, k int) ([]domain.Match, error)
}

// Overwriter is implemented by stores whose Upsert may leave ids that already
// exist unchanged. Overwrite always replaces them.
type Overwriter interface {
	Overwrite(ctx context.Context, collection string, items []domain.CatalogItem) (domain.UpsertResult, error)
}
