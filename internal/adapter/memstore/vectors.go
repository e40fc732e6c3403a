// Package memstore is an in-process VectorStore for local development and
// tests. Nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"amplie/internal/adapter/encoder"
	"amplie/internal/domain"
	"amplie/internal/port"
)

var (
	_ port.VectorStore = (*VectorStore)(nil)
	_ port.Overwriter  = (*VectorStore)(nil)
)

// VectorStore keeps one brute-force collection per name and ranks by squared
// L2 distance, the default metric of a Chroma collection.
type VectorStore struct {
	mu          sync.RWMutex
	encoder     port.PolicyEncoder
	collections map[string]*collection
	nextID      int
}

type collection struct {
	meta    domain.Collection
	entries map[string]entry
}

type entry struct {
	vector   domain.Vector
	metadata map[string]any
}

func New(enc port.PolicyEncoder) *VectorStore {
	if enc == nil {
		enc = encoder.New()
	}
	return &VectorStore{
		encoder:     enc,
		collections: make(map[string]*collection),
	}
}

// Upsert creates the collection on first use and overwrites existing ids.
func (s *VectorStore) Upsert(_ context.Context, name string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(name)
	for _, item := range items {
		col.entries[item.ID] = entry{
			vector:   s.encoder.Encode(item.Policy),
			metadata: metadata(item),
		}
	}
	return domain.UpsertResult{Collection: col.meta, Count: len(items)}, nil
}

// Overwrite is Upsert; existing ids are always replaced here.
func (s *VectorStore) Overwrite(ctx context.Context, name string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	return s.Upsert(ctx, name, items)
}

// Query returns the k nearest items ordered by (distance, id).
func (s *VectorStore) Query(_ context.Context, name string, policy domain.Policy, k int) ([]domain.Match, error) {
	if k < 1 {
		return nil, domain.ErrInvalidK
	}
	q := s.encoder.Encode(policy)

	s.mu.Lock()
	col := s.collection(name)
	matches := make([]domain.Match, 0, len(col.entries))
	for id, e := range col.entries {
		matches = append(matches, domain.Match{
			ID:       id,
			Distance: squaredL2(q, e.vector),
			Metadata: cloneMetadata(e.metadata),
		})
	}
	s.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Heartbeat always succeeds.
func (s *VectorStore) Heartbeat(context.Context) error {
	return nil
}

// Count returns the number of items in the named collection.
func (s *VectorStore) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if col, ok := s.collections[name]; ok {
		return len(col.entries)
	}
	return 0
}

// collection returns the named collection, creating it. Callers hold mu.
func (s *VectorStore) collection(name string) *collection {
	col, ok := s.collections[name]
	if !ok {
		s.nextID++
		col = &collection{
			meta:    domain.Collection{ID: "mem-" + strconv.Itoa(s.nextID), Name: name},
			entries: make(map[string]entry),
		}
		s.collections[name] = col
	}
	return col
}

func metadata(item domain.CatalogItem) map[string]any {
	m := map[string]any{
		"title":   item.Title,
		"artist":  item.Artist,
		"tempo":   item.Policy.Tempo,
		"energy":  item.Policy.Energy,
		"valence": item.Policy.Valence,
	}
	if item.Policy.Genres != nil {
		m["genres"] = strings.Join(item.Policy.Genres, ",")
	}
	return m
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func squaredL2(a, b domain.Vector) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
