package domain

import (
	"context"
	"time"
)

// TextGenerator defines the interface for the generative text backend
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FoodSearcher defines the interface for a food-facts search service.
// An empty result is not an error: implementations return (nil, nil).
type FoodSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]EscalationCandidate, error)
}

// ReferenceDatabase defines read-only access to the reference nutrition table
type ReferenceDatabase interface {
	Lookup(foodName string) (FoodReference, bool)
	Names() []string
}

// KeyValueStore defines the interface for caller-side persistence.
// A ttl of 0 means the entry never expires.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
