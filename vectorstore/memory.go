package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"seoscope/embedding"
)

// MemoryStore keeps vectors in process and answers queries by exhaustive
// squared-L2 search.
type MemoryStore struct {
	embedder embedding.Client
	mu       sync.RWMutex
	docs     []Document
	vectors  [][]float32
	dim      int
}

func NewMemoryStore(embedder embedding.Client) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = nil
	s.vectors = nil
	s.dim = 0
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := s.embedder.GetEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: got %d, want %d", embedding.ErrEmbeddingCount, len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("%w: document %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	s.dim = dim
	s.docs = append(s.docs, docs...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	s.mu.RLock()
	docs, vectors, dim := s.docs, s.vectors, s.dim
	s.mu.RUnlock()

	if len(docs) == 0 || topK <= 0 {
		return []Result{}, nil
	}

	queryVectors, err := s.embedder.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVectors) != 1 {
		return nil, fmt.Errorf("%w: got %d, want 1", embedding.ErrEmbeddingCount, len(queryVectors))
	}
	query := queryVectors[0]
	if len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(query), dim)
	}

	results := make([]Result, len(docs))
	for i := range docs {
		results[i] = Result{Document: docs[i], Score: SquaredL2(query, vectors[i])}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	return results[:min(topK, len(results))], nil
}

// Len returns the number of stored documents
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return s.Reset(ctx)
}

// MemoryFactory hands out a fresh MemoryStore per request.
type MemoryFactory struct {
	Embedder embedding.Client
}

func (f *MemoryFactory) NewStore(ctx context.Context) (Store, error) {
	return NewMemoryStore(f.Embedder), nil
}
