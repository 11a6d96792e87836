package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"seoscope/embedding"
)

const (
	payloadSource = "source"
	payloadText   = "text"
	payloadSeq    = "seq"
)

type QdrantConfig struct {
	Host             string
	Port             int
	APIKey           string
	UseTLS           bool
	CollectionPrefix string
}

func NewQdrantClient(cfg QdrantConfig) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port, // gRPC port
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return client, nil
}

// QdrantStore keeps one request's documents in a private Qdrant collection
// using Euclid distance. The collection is created lazily on the first Add,
// once the embedding dimension is known, and dropped on Reset and Close.
type QdrantStore struct {
	client     *qdrant.Client
	embedder   embedding.Client
	collection string
	logger     *zap.Logger

	mu      sync.Mutex
	created bool
	dim     int
	next    uint64
}

func NewQdrantStore(client *qdrant.Client, embedder embedding.Client, prefix string, logger *zap.Logger) *QdrantStore {
	if prefix == "" {
		prefix = "seoscope"
	}
	return &QdrantStore{
		client:     client,
		embedder:   embedder,
		collection: prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		logger:     logger,
	}
}

// Collection returns the name of the backing collection
func (s *QdrantStore) Collection() string {
	return s.collection
}

func (s *QdrantStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropLocked(ctx)
}

func (s *QdrantStore) dropLocked(ctx context.Context) error {
	s.next = 0
	s.dim = 0
	if !s.created {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.collection, err)
	}
	s.created = false
	return nil
}

func (s *QdrantStore) Add(ctx context.Context, docs []Document) error {
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

	if !s.created {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Euclid,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", s.collection, err)
		}
		s.created = true
		s.logger.Debug("created qdrant collection",
			zap.String("collection", s.collection),
			zap.Int("dimension", dim))
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		seq := s.next + uint64(i)
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(seq),
			Vectors: qdrant.NewVectorsDense(vectors[i]),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadSource: d.Source,
				payloadText:   d.Text,
				payloadSeq:    int64(seq),
			}),
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	s.dim = dim
	s.next += uint64(len(docs))
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	s.mu.Lock()
	count, dim := s.next, s.dim
	s.mu.Unlock()

	if count == 0 || topK <= 0 {
		return []Result{}, nil
	}

	queryVectors, err := s.embedder.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVectors) != 1 {
		return nil, fmt.Errorf("%w: got %d, want 1", embedding.ErrEmbeddingCount, len(queryVectors))
	}
	if len(queryVectors[0]) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(queryVectors[0]), dim)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVectors[0]...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.collection, err)
	}

	return scoredPointsToResults(points), nil
}

// scoredPointsToResults converts Euclid scores to squared distances and orders
// them by distance, then by insertion sequence.
func scoredPointsToResults(points []*qdrant.ScoredPoint) []Result {
	type ranked struct {
		Result
		seq int64
	}
	ranks := make([]ranked, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		score := float64(p.GetScore())
		ranks = append(ranks, ranked{
			Result: Result{
				Document: Document{
					Source: payload[payloadSource].GetStringValue(),
					Text:   payload[payloadText].GetStringValue(),
				},
				Score: score * score,
			},
			seq: payload[payloadSeq].GetIntegerValue(),
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Score != ranks[j].Score {
			return ranks[i].Score < ranks[j].Score
		}
		return ranks[i].seq < ranks[j].seq
	})

	results := make([]Result, len(ranks))
	for i, r := range ranks {
		results[i] = r.Result
	}
	return results
}

func (s *QdrantStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropLocked(ctx)
}

// QdrantFactory gives every request its own collection on a shared client.
type QdrantFactory struct {
	Client   *qdrant.Client
	Embedder embedding.Client
	Prefix   string
	Logger   *zap.Logger
}

func (f *QdrantFactory) NewStore(ctx context.Context) (Store, error) {
	return NewQdrantStore(f.Client, f.Embedder, f.Prefix, f.Logger), nil
}
