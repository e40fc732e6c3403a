package policy

import (
	"context"
	"strings"

	"amplie/internal/domain"
	"amplie/internal/port"
)

const (
	ModeMajor = "major"
	ModeMinor = "minor"
)

var _ port.PolicySource = (*Fixtures)(nil)

// DefaultPolicy is returned for emotions with no fixture.
var DefaultPolicy = domain.Policy{Tempo: 100, Energy: 0.5, Valence: 0.5, Genres: []string{"pop"}}

var fixtures = map[string]domain.Policy{
	"happy:major":   {Tempo: 128, Energy: 0.85, Valence: 0.9, Genres: []string{"pop", "dance", "edm"}},
	"sad:minor":     {Tempo: 70, Energy: 0.3, Valence: 0.2, Genres: []string{"ambient", "piano", "acoustic"}},
	"angry:minor":   {Tempo: 140, Energy: 0.95, Valence: 0.2, Genres: []string{"metal", "hard rock", "trap"}},
	"relaxed:major": {Tempo: 90, Energy: 0.4, Valence: 0.7, Genres: []string{"lofi", "chillhop", "jazz"}},
	"hopeful:major": {Tempo: 110, Energy: 0.6, Valence: 0.8, Genres: []string{"indie pop", "electropop"}},
	"tired:minor":   {Tempo: 60, Energy: 0.2, Valence: 0.3, Genres: []string{"acoustic", "ambient"}},
}

// Fixtures serves policies from a fixed emotion/mode table.
type Fixtures struct{}

func NewFixtures() *Fixtures {
	return &Fixtures{}
}

func (f *Fixtures) GetPolicy(_ context.Context, emotion, mode string) (domain.Policy, error) {
	return Lookup(emotion, mode), nil
}

// Lookup returns a copy of the fixture for emotion and mode. Mode defaults to major.
func Lookup(emotion, mode string) domain.Policy {
	emotion = strings.ToLower(strings.TrimSpace(emotion))
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = ModeMajor
	}

	p, ok := fixtures[emotion+":"+mode]
	if !ok {
		p = DefaultPolicy
	}
	p.Genres = append([]string(nil), p.Genres...)
	return p
}
