package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"seoscope/analyzer"
	"seoscope/config"
	"seoscope/crawler"
	"seoscope/embedding"
	"seoscope/llm"
	"seoscope/rag"
	"seoscope/storage"
	"seoscope/vectorstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds every wired component and the resources to release on exit.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *analyzer.Service
	crawls  *storage.CrawlCollection
	qdrant  *qdrant.Client
}

// wireOptions selects which optional components a command needs.
type wireOptions struct {
	generation bool
}

func newApp(configPath string, opts wireOptions) (*app, error) {
	// =========
	// Config
	// =========
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// =========
	// Logging
	// =========
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	// =========
	// Crawler
	// =========
	crawlerConfig := &crawler.CrawlerConfig{
		MaxPages:       cfg.Crawl.MaxPages,
		RequestTimeout: cfg.Crawl.Timeout,
		Workers:        cfg.Crawl.Workers,
		UserAgent:      cfg.Crawl.UserAgent,
	}
	fetcher := crawler.NewCollyFetcher(crawlerConfig, logger)
	siteCrawler := crawler.NewCrawler(fetcher, logger, crawlerConfig)

	// =========
	// Embedding Client
	// =========
	var embedder embedding.Client
	switch cfg.Embedding.Provider {
	case config.EmbeddingOpenAI:
		embedder, err = embedding.NewLangchainClient(embedding.LangchainConfig{
			BaseURL: cfg.Embedding.URL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
		}
	default:
		embedder = embedding.NewTEIClient(cfg.Embedding.URL)
	}

	// =========
	// Vector store
	// =========
	var stores vectorstore.Factory
	switch cfg.RAG.VectorStore {
	case config.VectorStoreQdrant:
		a.qdrant, err = vectorstore.NewQdrantClient(vectorstore.QdrantConfig{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		stores = &vectorstore.QdrantFactory{
			Client:   a.qdrant,
			Embedder: embedder,
			Prefix:   cfg.Qdrant.CollectionPrefix,
			Logger:   logger,
		}
	default:
		stores = &vectorstore.MemoryFactory{Embedder: embedder}
	}

	// =========
	// Generation
	// =========
	var generator llm.Generator
	if opts.generation {
		generator, err = llm.NewLangchainGenerator(llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator (set LLM_API_KEY or GROQ_API_KEY): %w", err)
		}
	}

	// =========
	// Crawl persistence
	// =========
	var serviceOpts []analyzer.Option
	if cfg.Storage.PersistCrawls {
		a.crawls, err = storage.OpenCrawlCollection(cfg.Storage.CrawlDBPath)
		if err != nil {
			return nil, err
		}
		serviceOpts = append(serviceOpts, analyzer.WithCrawlRepository(a.crawls))
	}

	// =========
	// Analyzer Service
	// =========
	a.service = analyzer.NewService(siteCrawler, stores, generator, rag.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		TopK:        cfg.RAG.TopK,
	}, logger, serviceOpts...)

	return a, nil
}

func (a *app) Close() {
	if a.crawls != nil {
		if err := a.crawls.Close(); err != nil {
			a.logger.Warn("failed to close crawl database", zap.Error(err))
		}
	}
	if a.qdrant != nil {
		if err := a.qdrant.Close(); err != nil {
			a.logger.Warn("failed to close qdrant client", zap.Error(err))
		}
	}
	a.logger.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
