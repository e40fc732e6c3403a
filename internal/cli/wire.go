package cli

import (
	"fmt"

	"amplie/config"
	"amplie/internal/adapter/cache"
	"amplie/internal/adapter/catalog"
	"amplie/internal/adapter/chroma"
	"amplie/internal/adapter/encoder"
	"amplie/internal/adapter/memstore"
	"amplie/internal/adapter/policy"
	"amplie/internal/api"
	"amplie/internal/port"
	"amplie/internal/usecase"
)

func openCatalog() (*catalog.BoltStore, error) {
	path := GetConfig().CatalogPath(GetRootDir())
	st, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return st, nil
}

func newChromaClient() (*chroma.Client, error) {
	ccfg, err := GetConfig().ChromaClientConfig()
	if err != nil {
		return nil, err
	}
	return chroma.New(ccfg, chroma.WithLogger(logger), chroma.WithEncoder(encoder.New()))
}

// backend is a vector store that can report its health.
type backend interface {
	port.VectorStore
	api.Pinger
}

func newBackend() (backend, error) {
	switch b := GetConfig().Chroma.Backend; b {
	case config.BackendMemory:
		logger.Warn("using in-memory vector store, nothing is persisted")
		return memstore.New(encoder.New()), nil
	case config.BackendChroma, "":
		client, err := newChromaClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", b)
	}
}

// newVectorStore wraps client with the query cache unless it is disabled.
func newVectorStore(client port.VectorStore) port.VectorStore {
	rc := GetConfig().Retrieve
	if rc.CacheSize <= 0 {
		return client
	}
	return cache.NewCachedStore(client, encoder.New(), cache.NewQueryCache(rc.CacheSize, rc.CacheTTL))
}

func newRetrieveUseCase(store port.VectorStore) *usecase.RetrieveUseCase {
	c := GetConfig()
	return usecase.NewRetrieveUseCase(store, policy.NewFixtures(), c.Chroma.Collection, c.Retrieve.TopK, c.Retrieve.MaxK)
}

func newEmbedUseCase(store port.VectorStore, cat port.CatalogStore) *usecase.EmbedUseCase {
	c := GetConfig()
	return usecase.NewEmbedUseCase(store, cat, encoder.New(), c.Chroma.Collection, c.Embed.BatchSize, logger)
}
