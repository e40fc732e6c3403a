package port

import (
	"context"

	"amplie/internal/domain"
)

// PolicySource maps a listener's emotion to a Policy.
type PolicySource interface {
	GetPolicy(ctx context.Context, emotion, mode string) (domain.Policy, error)
}
