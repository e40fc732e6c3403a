package domain

import "errors"

// ErrInvalidK is returned when a result count is outside [1, MaxK].
var ErrInvalidK = errors.New("k must be between 1 and the configured maximum")

// Policy describes the musical mood a listener is after.
type Policy struct {
	Tempo   float64  `json:"tempo" yaml:"tempo"`
	Energy  float64  `json:"energy" yaml:"energy"`
	Valence float64  `json:"valence" yaml:"valence"`
	Genres  []string `json:"genres" yaml:"genres"`
}

// Vector is the fixed-length embedding of a Policy.
type Vector []float64

type CatalogItem struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist" yaml:"artist"`
	Policy Policy `json:"policy" yaml:"policy"`
}

// Collection is a handle to a server-side vector collection.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UpsertResult struct {
	Collection Collection
	Count      int
}

// Match is one ranked nearest-neighbour result.
type Match struct {
	ID       string         `json:"id"`
	Distance float64        `json:"distance"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
