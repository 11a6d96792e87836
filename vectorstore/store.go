package vectorstore

import (
	"context"
	"errors"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Result is a retrieved document. Score is the squared Euclidean distance to
// the query; lower is closer.
type Result struct {
	Document
	Score float64 `json:"score"`
}

// Store indexes documents for nearest-neighbour lookup. A Store holds the
// state of a single analysis and must not be shared between concurrent ones.
type Store interface {
	// Reset discards every stored document.
	Reset(ctx context.Context) error
	// Add embeds docs in one batch and appends them in order.
	Add(ctx context.Context, docs []Document) error
	// Query returns up to topK documents by ascending distance, ties broken by
	// insertion order. An empty store yields an empty slice.
	Query(ctx context.Context, text string, topK int) ([]Result, error)
	// Close releases resources held by the store.
	Close(ctx context.Context) error
}

// Factory creates an isolated Store for each analysis request.
type Factory interface {
	NewStore(ctx context.Context) (Store, error)
}

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
