package chroma

import (
	"bytes"
	"encoding/json"
	"errors"

	"amplie/internal/domain"
)

// collectionList is the union of the two list shapes servers return:
// {"collections": [...]} or a bare array.
type collectionList struct {
	wrapped *wrappedCollections
	bare    []domain.Collection
}

type wrappedCollections struct {
	Collections []domain.Collection `json:"collections"`
}

func (l *collectionList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errors.New("empty collection list")
	}
	switch b[0] {
	case '[':
		return json.Unmarshal(b, &l.bare)
	case '{':
		l.wrapped = &wrappedCollections{}
		return json.Unmarshal(b, l.wrapped)
	default:
		return errors.New("collection list is neither an object nor an array")
	}
}

// items normalises either form into a plain slice.
func (l collectionList) items() []domain.Collection {
	if l.wrapped != nil {
		return l.wrapped.Collections
	}
	return l.bare
}

type createCollectionRequest struct {
	Name string `json:"name"`
}

type addRequest struct {
	IDs        []string        `json:"ids"`
	Embeddings [][]float64     `json:"embeddings"`
	Metadatas  []trackMetadata `json:"metadatas"`
}

// trackMetadata is flat because the server rejects nested arrays and objects.
type trackMetadata struct {
	Title   string  `json:"title"`
	Artist  string  `json:"artist"`
	Tempo   float64 `json:"tempo"`
	Energy  float64 `json:"energy"`
	Valence float64 `json:"valence"`
	Genres  *string `json:"genres,omitempty"` // comma separated
}

type queryRequest struct {
	QueryEmbeddings [][]float64 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

// queryResponse holds one inner slice per query embedding; only index 0 is used.
type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]*float64       `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
}
