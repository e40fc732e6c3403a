package chroma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amplie/internal/adapter/encoder"
	"amplie/internal/domain"
)

func TestUpsert_Body(t *testing.T) {
	fake := newFakeChroma()
	srv := fake.start(t)
	c := newTestClient(t, srv)

	items := seedItems()
	res, err := c.Upsert(context.Background(), "tracks", items)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "tracks", res.Collection.Name)

	add := fake.lastAddRequest()
	assert.Equal(t, []string{"t1", "t2"}, add.IDs)
	require.Len(t, add.Embeddings, 2)
	assert.InDeltaSlice(t, []float64(encoder.Encode(items[0].Policy)), add.Embeddings[0], 1e-12)
	assert.InDeltaSlice(t, []float64(encoder.Encode(items[1].Policy)), add.Embeddings[1], 1e-12)

	require.Len(t, add.Metadatas, 2)
	m := add.Metadatas[0]
	assert.Equal(t, "Dance Floor", m.Title)
	assert.Equal(t, "A", m.Artist)
	assert.Equal(t, 128.0, m.Tempo)
	assert.Equal(t, 0.85, m.Energy)
	assert.Equal(t, 0.9, m.Valence)
	require.NotNil(t, m.Genres)
	assert.Equal(t, "pop,edm", *m.Genres)

	assert.Equal(t, []string{"t1", "t2"}, fake.writtenIDs(res.Collection.ID))
}

func TestUpsert_FallsBackToUpsertEndpoint(t *testing.T) {
	fake := newFakeChroma(legacyPrefix)
	fake.noAdd = true
	srv := fake.start(t)
	c := newTestClient(t, srv)

	res, err := c.Upsert(context.Background(), "tracks", seedItems())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	reqs := fake.requestLog()
	assert.Contains(t, reqs, "POST "+legacyPrefix+"collections/"+res.Collection.ID+"/add")
	assert.Equal(t, "POST "+legacyPrefix+"collections/"+res.Collection.ID+"/upsert", reqs[len(reqs)-1])
	assert.Equal(t, []string{"t1", "t2"}, fake.writtenIDs(res.Collection.ID))
}

func TestOverwrite_UsesUpsertEndpoint(t *testing.T) {
	fake := newFakeChroma()
	fake.addCollection("c1", "tracks")
	srv := fake.start(t)
	c := newTestClient(t, srv)

	res, err := c.Overwrite(context.Background(), "tracks", seedItems())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	reqs := fake.requestLog()
	assert.Equal(t, "POST "+tenantPrefix+"collections/c1/upsert", reqs[len(reqs)-1])
	assert.NotContains(t, reqs, "POST "+tenantPrefix+"collections/c1/add")
	assert.Equal(t, []string{"t1", "t2"}, fake.writtenIDs("c1"))
}

func TestOverwrite_FallsBackToAdd(t *testing.T) {
	fake := newFakeChroma()
	fake.noUpsert = true
	fake.addCollection("c1", "tracks")
	srv := fake.start(t)
	c := newTestClient(t, srv)

	_, err := c.Overwrite(context.Background(), "tracks", seedItems())
	require.NoError(t, err)

	reqs := fake.requestLog()
	assert.Equal(t, "POST "+tenantPrefix+"collections/c1/add", reqs[len(reqs)-1])
	assert.Equal(t, []string{"t1", "t2"}, fake.writtenIDs("c1"))
}

func TestUpsert_TerminalErrorSkipsFallback(t *testing.T) {
	fake := newFakeChroma()
	fake.addCollection("c1", "tracks")
	var (
		mu    sync.Mutex
		posts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			posts = append(posts, r.URL.Path)
			mu.Unlock()
			http.Error(w, "bad batch", http.StatusUnprocessableEntity)
			return
		}
		fake.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv)

	_, err := c.Upsert(context.Background(), "tracks", seedItems())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(err))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, posts, 1)
	assert.Equal(t, tenantPrefix+"collections/c1/add", posts[0])
}

func TestUpsert_EmptyBatch(t *testing.T) {
	fake := newFakeChroma()
	fake.addCollection("c1", "tracks")
	srv := fake.start(t)
	c := newTestClient(t, srv)

	res, err := c.Upsert(context.Background(), "tracks", nil)
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Equal(t, "c1", res.Collection.ID)
	assert.Zero(t, fake.writeCount())
}

func TestToMetadata_NoGenres(t *testing.T) {
	m := toMetadata(domain.CatalogItem{ID: "x", Title: "T", Artist: "A", Policy: domain.Policy{Tempo: 90}})
	assert.Nil(t, m.Genres)

	m = toMetadata(domain.CatalogItem{Policy: domain.Policy{Genres: []string{}}})
	require.NotNil(t, m.Genres)
	assert.Equal(t, "", *m.Genres)
}
