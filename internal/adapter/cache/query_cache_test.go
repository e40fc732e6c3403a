package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amplie/internal/adapter/encoder"
	"amplie/internal/domain"
)

func TestQueryCache_GetPut(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	v := domain.Vector{0.1, 0.2}
	results := []domain.Match{{ID: "a", Distance: 0.1}}

	_, hit := c.Get("tracks", v, 3)
	assert.False(t, hit)

	c.Put("tracks", v, 3, results)
	got, hit := c.Get("tracks", v, 3)
	require.True(t, hit)
	assert.Equal(t, results, got)

	_, hit = c.Get("tracks", v, 4)
	assert.False(t, hit, "k is part of the key")
	_, hit = c.Get("other", v, 3)
	assert.False(t, hit, "collection is part of the key")
	_, hit = c.Get("tracks", domain.Vector{0.1, 0.3}, 3)
	assert.False(t, hit, "vector is part of the key")
}

func TestQueryCache_Eviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("c", domain.Vector{1}, 1, nil)
	c.Put("c", domain.Vector{2}, 1, nil)

	// Touch 1 so 2 is the oldest.
	_, hit := c.Get("c", domain.Vector{1}, 1)
	require.True(t, hit)

	c.Put("c", domain.Vector{3}, 1, nil)
	assert.Equal(t, 2, c.Size())
	_, hit = c.Get("c", domain.Vector{2}, 1)
	assert.False(t, hit)
	_, hit = c.Get("c", domain.Vector{1}, 1)
	assert.True(t, hit)
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("c", domain.Vector{1}, 1, []domain.Match{{ID: "a"}})
	now = now.Add(2 * time.Minute)

	_, hit := c.Get("c", domain.Vector{1}, 1)
	assert.False(t, hit)
	assert.Zero(t, c.Size())
}

func TestQueryCache_Invalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("c", domain.Vector{1}, 1, []domain.Match{{ID: "a"}})
	c.Invalidate()

	_, hit := c.Get("c", domain.Vector{1}, 1)
	assert.False(t, hit)
	assert.Zero(t, c.Size())
}

type stubStore struct {
	queries int
	upserts int
	err     error
}

func (s *stubStore) Upsert(_ context.Context, _ string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	s.upserts++
	if s.err != nil {
		return domain.UpsertResult{}, s.err
	}
	return domain.UpsertResult{Count: len(items)}, nil
}

func (s *stubStore) Query(_ context.Context, _ string, _ domain.Policy, k int) ([]domain.Match, error) {
	s.queries++
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Match{{ID: "a", Distance: 0.1}}, nil
}

func TestCachedStore(t *testing.T) {
	store := &stubStore{}
	cs := NewCachedStore(store, encoder.New(), NewQueryCache(10, time.Minute))
	ctx := context.Background()
	p := domain.Policy{Tempo: 120, Genres: []string{"pop"}}

	first, err := cs.Query(ctx, "tracks", p, 5)
	require.NoError(t, err)
	second, err := cs.Query(ctx, "tracks", domain.Policy{Tempo: 120, Genres: []string{"POP"}}, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.queries, "equal encodings share a cache entry")

	_, err = cs.Upsert(ctx, "tracks", []domain.CatalogItem{{ID: "x"}})
	require.NoError(t, err)

	_, err = cs.Query(ctx, "tracks", p, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, store.queries, "upsert invalidates")
}

func TestCachedStore_ErrorsNotCached(t *testing.T) {
	store := &stubStore{err: errors.New("down")}
	cs := NewCachedStore(store, encoder.New(), NewQueryCache(10, time.Minute))

	_, err := cs.Query(context.Background(), "tracks", domain.Policy{}, 5)
	require.Error(t, err)
	_, err = cs.Query(context.Background(), "tracks", domain.Policy{}, 5)
	require.Error(t, err)
	assert.Equal(t, 2, store.queries)
}

type overwritingStore struct {
	stubStore
	overwrites int
}

func (s *overwritingStore) Overwrite(_ context.Context, _ string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	s.overwrites++
	return domain.UpsertResult{Count: len(items)}, nil
}

func TestCachedStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	items := []domain.CatalogItem{{ID: "x"}}

	plain := &stubStore{}
	_, err := NewCachedStore(plain, encoder.New(), NewQueryCache(10, time.Minute)).Overwrite(ctx, "tracks", items)
	require.NoError(t, err)
	assert.Equal(t, 1, plain.upserts, "stores without Overwrite get an Upsert")

	store := &overwritingStore{}
	cs := NewCachedStore(store, encoder.New(), NewQueryCache(10, time.Minute))
	_, err = cs.Query(ctx, "tracks", domain.Policy{}, 5)
	require.NoError(t, err)

	_, err = cs.Overwrite(ctx, "tracks", items)
	require.NoError(t, err)
	assert.Equal(t, 1, store.overwrites)
	assert.Zero(t, store.upserts)

	_, err = cs.Query(ctx, "tracks", domain.Policy{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, store.queries, "overwrite invalidates")
}
