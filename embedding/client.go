package embedding

import (
	"context"
	"errors"
)

var ErrEmbeddingCount = errors.New("embedding count does not match input count")

type EmbeddingRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize,omitempty"`
}

type EmbeddingResponse [][]float32

// Client turns texts into fixed-length vectors, one per input, in input order.
type Client interface {
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}
