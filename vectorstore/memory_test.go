package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableEmbedder maps known texts to fixed vectors and counts calls.
type tableEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (e *tableEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, errors.New("unknown text " + t)
		}
		out[i] = v
	}
	return out, nil
}

func newTableEmbedder() *tableEmbedder {
	return &tableEmbedder{vectors: map[string][]float32{
		"origin": {0, 0},
		"near":   {1, 0},
		"far":    {3, 4},
		"tie-a":  {0, 2},
		"tie-b":  {2, 0},
		"query":  {0, 0},
		"wide":   {1, 2, 3},
	}}
}

func docs(texts ...string) []Document {
	out := make([]Document, len(texts))
	for i, t := range texts {
		out[i] = Document{Source: "src-" + t, Text: t}
	}
	return out
}

func sources(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Source
	}
	return out
}

func TestMemoryStore_QueryRanksByDistance(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(newTableEmbedder())
	require.NoError(t, store.Add(ctx, docs("far", "near", "origin")))

	results, err := store.Query(ctx, "query", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"src-origin", "src-near", "src-far"}, sources(results))
	assert.Equal(t, 0.0, results[0].Score)
	assert.Equal(t, 1.0, results[1].Score)
	assert.Equal(t, 25.0, results[2].Score)
}

func TestMemoryStore_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(newTableEmbedder())
	require.NoError(t, store.Add(ctx, docs("tie-b", "far")))
	require.NoError(t, store.Add(ctx, docs("tie-a")))

	results, err := store.Query(ctx, "query", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"src-tie-b", "src-tie-a"}, sources(results))
}

func TestMemoryStore_TopKLargerThanStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(newTableEmbedder())
	require.NoError(t, store.Add(ctx, docs("near", "far")))

	results, err := store.Query(ctx, "query", 3)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryStore_EmptyStoreReturnsNothing(t *testing.T) {
	ctx := context.Background()
	embedder := newTableEmbedder()
	store := NewMemoryStore(embedder)
	require.NoError(t, store.Add(ctx, docs("near")))
	require.NoError(t, store.Reset(ctx))
	embedder.calls = 0

	for _, k := range []int{1, 5, 100} {
		results, err := store.Query(ctx, "query", k)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_NonPositiveTopK(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(newTableEmbedder())
	require.NoError(t, store.Add(ctx, docs("near")))

	results, err := store.Query(ctx, "query", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_AddEmbedsOnceAsBatch(t *testing.T) {
	embedder := newTableEmbedder()
	store := NewMemoryStore(embedder)
	require.NoError(t, store.Add(context.Background(), docs("near", "far", "origin")))
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 3, store.Len())
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(newTableEmbedder())
	require.NoError(t, store.Add(ctx, docs("near")))

	err := store.Add(ctx, docs("wide"))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_EmbedderFailure(t *testing.T) {
	embedder := newTableEmbedder()
	embedder.err = errors.New("model offline")
	store := NewMemoryStore(embedder)

	err := store.Add(context.Background(), docs("near"))
	assert.ErrorContains(t, err, "model offline")
}

func TestMemoryFactory_IsolatesStores(t *testing.T) {
	ctx := context.Background()
	factory := &MemoryFactory{Embedder: newTableEmbedder()}

	first, err := factory.NewStore(ctx)
	require.NoError(t, err)
	second, err := factory.NewStore(ctx)
	require.NoError(t, err)

	require.NoError(t, first.Add(ctx, docs("near")))
	require.NoError(t, second.Reset(ctx))

	results, err := first.Query(ctx, "query", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"src-near"}, sources(results))
}

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, 25.0, SquaredL2([]float32{0, 0}, []float32{3, 4}))
	assert.Equal(t, 0.0, SquaredL2([]float32{1, 2}, []float32{1, 2}))
}

func TestScoredPointsToResults(t *testing.T) {
	point := func(source string, score float32, seq int64) *qdrant.ScoredPoint {
		return &qdrant.ScoredPoint{
			Score: score,
			Payload: qdrant.NewValueMap(map[string]any{
				payloadSource: source,
				payloadText:   "text " + source,
				payloadSeq:    seq,
			}),
		}
	}

	results := scoredPointsToResults([]*qdrant.ScoredPoint{
		point("c", 2, 0),
		point("b", 1, 5),
		point("a", 1, 3),
	})

	assert.Equal(t, []string{"a", "b", "c"}, sources(results))
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, 4.0, results[2].Score)
	assert.Equal(t, "text a", results[0].Text)
}
