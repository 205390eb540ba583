package memory

import (
	"context"
	"errors"
	"fmt"
)

// ErrIndexUnavailable marks vector index failures callers may want to
// degrade on instead of aborting the turn.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// IndexError wraps a backend failure so callers can match ErrIndexUnavailable
// while the cause stays in the error chain.
func IndexError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrIndexUnavailable, op, cause)
}

// SearchHit is one similarity-search candidate. Distance is the cosine
// distance in [0,2]; Similarity is the derived 1 - Distance in [-1,1].
type SearchHit struct {
	ID         string
	Document   string
	Metadata   map[string]string
	Distance   float64
	Similarity float64
}

// Index wraps insert/query primitives of an external vector collection.
// Implementations convert the backend's distance measure to the
// distance/similarity pair above but never apply threshold filtering;
// that is the caller's decision.
type Index interface {
	Insert(ctx context.Context, id string, embedding []float32, document string, metadata map[string]string) error
	Query(ctx context.Context, embedding []float32, k int) ([]SearchHit, error)
}
