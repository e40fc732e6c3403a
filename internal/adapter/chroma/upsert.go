package chroma

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"amplie/internal/domain"
	"amplie/internal/port"
)

var _ port.Overwriter = (*Client)(nil)

// Upsert writes items into the named collection. It tries the "add" endpoint
// and falls back to "upsert" for servers that only expose the older name.
// Writes are not transactional; re-running with the same ids is the recovery.
func (c *Client) Upsert(ctx context.Context, name string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	return c.write(ctx, name, items, "add", "upsert")
}

// Overwrite is Upsert for ids that may already exist remotely. Some servers
// skip existing ids on "add", so "upsert" is tried first.
func (c *Client) Overwrite(ctx context.Context, name string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	return c.write(ctx, name, items, "upsert", "add")
}

func (c *Client) write(ctx context.Context, name string, items []domain.CatalogItem, op, fallback string) (domain.UpsertResult, error) {
	col, err := c.ResolveCollection(ctx, name)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	if len(items) == 0 {
		return domain.UpsertResult{Collection: col}, nil
	}

	req := c.buildAddRequest(items)
	base := "collections/" + url.PathEscape(col.ID) + "/"

	err = c.negotiate(ctx, call{op: op, method: http.MethodPost, path: base + op, body: req, mutates: true}, nil)
	if IsShapeMismatch(err) {
		c.logger.Debug("chroma write endpoint unavailable", "collection", name, "endpoint", op, "fallback", fallback)
		err = c.negotiate(ctx, call{op: fallback, method: http.MethodPost, path: base + fallback, body: req, mutates: true}, nil)
	}
	if err != nil {
		return domain.UpsertResult{}, err
	}

	return domain.UpsertResult{Collection: col, Count: len(items)}, nil
}

func (c *Client) buildAddRequest(items []domain.CatalogItem) addRequest {
	req := addRequest{
		IDs:        make([]string, len(items)),
		Embeddings: make([][]float64, len(items)),
		Metadatas:  make([]trackMetadata, len(items)),
	}
	for i, item := range items {
		req.IDs[i] = item.ID
		req.Embeddings[i] = c.encoder.Encode(item.Policy)
		req.Metadatas[i] = toMetadata(item)
	}
	return req
}

func toMetadata(item domain.CatalogItem) trackMetadata {
	m := trackMetadata{
		Title:   item.Title,
		Artist:  item.Artist,
		Tempo:   item.Policy.Tempo,
		Energy:  item.Policy.Energy,
		Valence: item.Policy.Valence,
	}
	if item.Policy.Genres != nil {
		g := strings.Join(item.Policy.Genres, ",")
		m.Genres = &g
	}
	return m
}
