package chroma

import (
	"context"
	"net/http"
	"net/url"

	"amplie/internal/domain"
)

const listLimit = 1000

// ResolveCollection returns the collection called name, creating it if it does
// not exist. A create that loses a race (409) is resolved by looking the name
// up once more.
func (c *Client) ResolveCollection(ctx context.Context, name string) (domain.Collection, error) {
	col, found, err := c.findCollection(ctx, name)
	if err != nil {
		return domain.Collection{}, err
	}
	if found {
		return col, nil
	}

	created, err := c.createCollection(ctx, name)
	if err == nil {
		return created, nil
	}
	if !IsConflict(err) {
		return domain.Collection{}, err
	}

	c.logger.Debug("chroma collection created concurrently, re-resolving", "collection", name)
	col, found, lookupErr := c.findCollection(ctx, name)
	if lookupErr != nil {
		return domain.Collection{}, lookupErr
	}
	if !found {
		return domain.Collection{}, err
	}
	return col, nil
}

// findCollection asks the server to filter by name, then falls back to a full
// listing for servers that ignore the filter.
func (c *Client) findCollection(ctx context.Context, name string) (domain.Collection, bool, error) {
	filtered := "collections?name=" + url.QueryEscape(name) + "&limit=" + itoa(listLimit)
	if col, ok, err := c.listAndMatch(ctx, filtered, name); err != nil || ok {
		return col, ok, err
	}
	return c.listAndMatch(ctx, "collections?limit="+itoa(listLimit), name)
}

func (c *Client) listAndMatch(ctx context.Context, path, name string) (domain.Collection, bool, error) {
	var list collectionList
	err := c.negotiate(ctx, call{op: "list collections", method: http.MethodGet, path: path}, &list)
	if err != nil {
		return domain.Collection{}, false, err
	}
	for _, col := range list.items() {
		if col.Name == name {
			return col, true, nil
		}
	}
	return domain.Collection{}, false, nil
}

func (c *Client) createCollection(ctx context.Context, name string) (domain.Collection, error) {
	var col domain.Collection
	err := c.negotiate(ctx, call{
		op:      "create collection",
		method:  http.MethodPost,
		path:    "collections",
		body:    createCollectionRequest{Name: name},
		mutates: true,
	}, &col)
	if err != nil {
		return domain.Collection{}, err
	}
	if col.ID == "" {
		return domain.Collection{}, &Error{Kind: KindValidation, Op: "create collection", Err: errMissingID}
	}
	if col.Name == "" {
		col.Name = name
	}
	c.logger.Info("chroma collection created", "collection", name, "id", col.ID)
	return col, nil
}
