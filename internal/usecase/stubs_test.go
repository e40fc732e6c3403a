package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"amplie/internal/adapter/catalog"
	"amplie/internal/adapter/encoder"
	"amplie/internal/adapter/policy"
	"amplie/internal/domain"
)

var errStub = errors.New("stub failure")

// stubStore records writes and returns canned query results.
type stubStore struct {
	mu      sync.Mutex
	batches [][]domain.CatalogItem
	methods []string // "upsert" or "overwrite", one per batch
	failAt  int      // 1-based batch number that fails, 0 never
	matches []domain.Match
	queries []int
}

func (s *stubStore) Upsert(_ context.Context, collection string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	return s.record("upsert", collection, items)
}

func (s *stubStore) Overwrite(_ context.Context, collection string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	return s.record("overwrite", collection, items)
}

func (s *stubStore) record(method, collection string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt == len(s.batches)+1 {
		return domain.UpsertResult{}, errStub
	}
	s.batches = append(s.batches, append([]domain.CatalogItem(nil), items...))
	s.methods = append(s.methods, method)
	return domain.UpsertResult{Collection: domain.Collection{ID: "c1", Name: collection}, Count: len(items)}, nil
}

func (s *stubStore) Query(_ context.Context, _ string, _ domain.Policy, k int) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, k)
	if len(s.matches) > k {
		return s.matches[:k], nil
	}
	return s.matches, nil
}

func (s *stubStore) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, b := range s.batches {
		for _, item := range b {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func openCatalog(t *testing.T) *catalog.BoltStore {
	t.Helper()
	st, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedCatalog(t *testing.T, st *catalog.BoltStore, ids ...string) []domain.CatalogItem {
	t.Helper()
	items := make([]domain.CatalogItem, len(ids))
	for i, id := range ids {
		items[i] = domain.CatalogItem{ID: id, Title: "Track " + id, Artist: "A", Policy: policy.DefaultPolicy}
	}
	require.NoError(t, st.PutItems(items))
	return items
}

func newEmbed(store *stubStore, cat *catalog.BoltStore, collection string, batch int) *EmbedUseCase {
	return NewEmbedUseCase(store, cat, encoder.New(), collection, batch, nil)
}
