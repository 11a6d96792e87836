package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seoscope/crawler"
	"seoscope/llm"
	"seoscope/rules"
	"seoscope/vectorstore"
)

var (
	ErrIndexing  = errors.New("building knowledge base failed")
	ErrRetrieval = errors.New("retrieval failed")
)

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	TopK        int
}

func DefaultConfig() Config {
	return Config{
		Model:       llm.DefaultModel,
		Temperature: 0.4,
		MaxTokens:   2048,
		Timeout:     60 * time.Second,
		TopK:        8,
	}
}

// Pipeline indexes one crawl into a store and answers questions about it by
// retrieval-augmented generation.
type Pipeline struct {
	store     vectorstore.Store
	generator llm.Generator
	config    Config
	logger    *zap.Logger
}

func NewPipeline(store vectorstore.Store, generator llm.Generator, config Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		generator: generator,
		config:    config,
		logger:    logger,
	}
}

// BuildKnowledgeBase replaces the store contents with one document per page
// and one per finding that has issues.
func (p *Pipeline) BuildKnowledgeBase(ctx context.Context, pages crawler.CrawlResult, findings []rules.Finding) error {
	logger := crawler.ContextLogger(ctx, p.logger)

	if err := p.store.Reset(ctx); err != nil {
		return fmt.Errorf("%w: reset store: %w", ErrIndexing, err)
	}

	docs := Documents(pages, findings)
	batch := make([]vectorstore.Document, len(docs))
	for i, d := range docs {
		batch[i] = d.vector()
	}
	if err := p.store.Add(ctx, batch); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexing, err)
	}

	logger.Info("knowledge base built",
		zap.Int("pages", len(pages)),
		zap.Int("documents", len(docs)))
	return nil
}

// Answer retrieves the topK closest documents to query and asks the generator
// for an analysis grounded on them. topK <= 0 uses the configured default.
func (p *Pipeline) Answer(ctx context.Context, query string, topK int) (string, error) {
	logger := crawler.ContextLogger(ctx, p.logger)
	if topK <= 0 {
		topK = p.config.TopK
	}

	results, err := p.store.Query(ctx, query, topK)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	logger.Debug("context retrieved", zap.Int("top_k", topK), zap.Int("results", len(results)))

	genCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := p.generator.Generate(genCtx, llm.Request{
		System:      SystemPrompt,
		User:        UserMessage(FormatContext(results), query),
		Model:       p.config.Model,
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return "", generationError(genCtx, err)
	}

	logger.Info("analysis generated",
		zap.String("model", p.config.Model),
		zap.Duration("took", time.Since(start)))
	return answer, nil
}

func generationError(ctx context.Context, err error) error {
	if !errors.Is(err, llm.ErrGeneration) {
		err = fmt.Errorf("%w: %w", llm.ErrGeneration, err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, llm.ErrTimeout) {
		err = fmt.Errorf("%w: %w", llm.ErrTimeout, err)
	}
	return err
}
