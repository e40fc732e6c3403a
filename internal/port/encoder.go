package port

import "amplie/internal/domain"

// PolicyEncoder turns a Policy into a fixed-length vector.
type PolicyEncoder interface {
	Encode(p domain.Policy) domain.Vector

	// Dimension returns the vector length.
	Dimension() int

	// Scheme names the encoding so stored vectors can be invalidated when it changes.
	Scheme() string
}
