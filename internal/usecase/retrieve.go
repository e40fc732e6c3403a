package usecase

import (
	"context"
	"fmt"

	"amplie/internal/domain"
	"amplie/internal/port"
)

// RetrieveUseCase handles nearest-neighbour lookups against the vector store.
type RetrieveUseCase struct {
	store      port.VectorStore
	policies   port.PolicySource
	collection string
	defaultK   int
	maxK       int
}

// NewRetrieveUseCase creates a new retrieve use case. store is usually a
// cache.CachedStore wrapping the chroma client.
func NewRetrieveUseCase(
	store port.VectorStore,
	policies port.PolicySource,
	collection string,
	defaultK, maxK int,
) *RetrieveUseCase {
	if maxK < defaultK {
		maxK = defaultK
	}
	return &RetrieveUseCase{
		store:      store,
		policies:   policies,
		collection: collection,
		defaultK:   defaultK,
		maxK:       maxK,
	}
}

// Retrieve returns at most k tracks closest to policy. k == 0 means the default.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, policy domain.Policy, k int) ([]domain.Match, error) {
	if k == 0 {
		k = u.defaultK
	}
	if k < 1 || k > u.maxK {
		return nil, fmt.Errorf("%w: got %d, max %d", domain.ErrInvalidK, k, u.maxK)
	}

	return u.store.Query(ctx, u.collection, policy, k)
}

// RetrieveForEmotion resolves the emotion to a policy first.
func (u *RetrieveUseCase) RetrieveForEmotion(ctx context.Context, emotion, mode string, k int) (domain.Policy, []domain.Match, error) {
	policy, err := u.Policy(ctx, emotion, mode)
	if err != nil {
		return domain.Policy{}, nil, err
	}

	matches, err := u.Retrieve(ctx, policy, k)
	return policy, matches, err
}

func (u *RetrieveUseCase) Policy(ctx context.Context, emotion, mode string) (domain.Policy, error) {
	policy, err := u.policies.GetPolicy(ctx, emotion, mode)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("failed to resolve policy: %w", err)
	}
	return policy, nil
}
