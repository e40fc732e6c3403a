// Package encoder turns a Policy into a fixed-length vector without any model
// dependency. The layout is [tempo, energy, valence, g0, g1, g2, g3].
package encoder

import (
	"hash/fnv"
	"math"
	"strings"

	"amplie/internal/domain"
)

const (
	// GenreDims is the number of hashed genre dimensions.
	GenreDims = 4

	// Dimension is the full vector length.
	Dimension = 3 + GenreDims

	// SchemeName identifies this encoding. Bump it whenever the arithmetic changes.
	SchemeName = "policy-fnv1a-v1"

	minTempo   = 60.0
	tempoRange = 120.0
)

// Encoder is the stateless PolicyEncoder.
type Encoder struct{}

func New() Encoder { return Encoder{} }

func (Encoder) Encode(p domain.Policy) domain.Vector { return Encode(p) }

func (Encoder) Dimension() int { return Dimension }

func (Encoder) Scheme() string { return SchemeName }

// Encode maps p onto a vector. It never fails and equal policies always yield
// bit-identical vectors.
func Encode(p domain.Policy) domain.Vector {
	v := make(domain.Vector, Dimension)
	v[0] = clamp01((p.Tempo - minTempo) / tempoRange)
	v[1] = clamp01(p.Energy)
	v[2] = clamp01(p.Valence)

	g := GenreBuckets(p.Genres)
	copy(v[3:], g[:])
	return v
}

// GenreBuckets hashes each genre into GenreDims byte shards and returns the
// L2-normalised sum. No genres yields all zeros.
func GenreBuckets(genres []string) [GenreDims]float64 {
	var g [GenreDims]float64
	for _, genre := range genres {
		h := hash32(strings.ToLower(genre))
		for i := 0; i < GenreDims; i++ {
			g[i] += float64((h>>(uint(i)*8))&0xff) / 255
		}
	}

	var sum float64
	for _, x := range g {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for i := range g {
		g[i] /= norm
	}
	return g
}

// hash32 is 32-bit FNV-1a over the UTF-8 bytes of s.
func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
