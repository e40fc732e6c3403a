package chroma

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"amplie/internal/domain"
)

// MaxK caps the number of results a single query may request.
const MaxK = 50

var (
	errMissingID  = errors.New("response has no collection id")
	errMissingIDs = errors.New("query response has no ids")
)

// Query returns the k nearest catalog items to policy, ordered by ascending
// distance and then id. Entries without a distance sort last.
func (c *Client) Query(ctx context.Context, name string, policy domain.Policy, k int) ([]domain.Match, error) {
	if k < 1 || k > MaxK {
		return nil, domain.ErrInvalidK
	}
	col, err := c.ResolveCollection(ctx, name)
	if err != nil {
		return nil, err
	}

	req := queryRequest{
		QueryEmbeddings: [][]float64{c.encoder.Encode(policy)},
		NResults:        k,
		Include:         []string{"distances", "metadatas"},
	}
	var resp queryResponse
	err = c.negotiate(ctx, call{
		op:     "query",
		method: http.MethodPost,
		path:   "collections/" + url.PathEscape(col.ID) + "/query",
		body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.IDs == nil {
		return nil, &Error{Kind: KindValidation, Op: "query", Err: errMissingIDs}
	}

	return rank(first(resp.IDs), first(resp.Distances), first(resp.Metadatas), k), nil
}

// rank zips the parallel result slices, sorts by (distance, id) and keeps k.
func rank(ids []string, distances []*float64, metadatas []map[string]any, k int) []domain.Match {
	matches := make([]domain.Match, len(ids))
	for i, id := range ids {
		m := domain.Match{ID: id, Distance: math.Inf(1)}
		if i < len(distances) && distances[i] != nil {
			m.Distance = *distances[i]
		}
		if i < len(metadatas) {
			m.Metadata = metadatas[i]
		}
		matches[i] = m
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func first[T any](outer [][]T) []T {
	if len(outer) == 0 {
		return nil
	}
	return outer[0]
}

func itoa(n int) string { return strconv.Itoa(n) }
