package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"seoscope/crawler"
	"seoscope/llm"
	"seoscope/rag"
	"seoscope/report"
	"seoscope/rules"
	"seoscope/storage"
	"seoscope/vectorstore"
)

const DefaultQuery = "Analyse this website's SEO in depth. For every page you have data on, " +
	"list the specific issues, explain why each matters, and give an exact " +
	"actionable fix. Prioritise by traffic impact. End with an overall score " +
	"out of 10 and a summary paragraph."

// SiteCrawler collects the pages of one site starting at a seed URL.
type SiteCrawler interface {
	Crawl(ctx context.Context, seedURL string) (crawler.CrawlResult, error)
}

// Service runs crawl, rule checks, retrieval and generation for one URL per call.
type Service struct {
	crawler   SiteCrawler
	stores    vectorstore.Factory
	generator llm.Generator
	crawls    storage.CrawlRepository
	config    rag.Config
	logger    *zap.Logger
}

type Option func(*Service)

// WithCrawlRepository enables SaveCrawl.
func WithCrawlRepository(repo storage.CrawlRepository) Option {
	return func(s *Service) {
		s.crawls = repo
	}
}

func NewService(
	siteCrawler SiteCrawler,
	stores vectorstore.Factory,
	generator llm.Generator,
	config rag.Config,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		crawler:   siteCrawler,
		stores:    stores,
		generator: generator,
		config:    config,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze crawls rawURL and produces the rule summary plus a generated
// analysis answering query. An empty query uses DefaultQuery.
func (s *Service) Analyze(ctx context.Context, rawURL, query string) (*report.AnalysisReport, error) {
	ctx = ensureRequestID(ctx)
	logger := crawler.ContextLogger(ctx, s.logger)
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}

	pages, err := s.CrawlOnly(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	findings := rules.Check(pages)

	store, err := s.stores.NewStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create vector store: %w", ErrAnalysisFailed, err)
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to close vector store", zap.Error(err))
		}
	}()

	pipeline := rag.NewPipeline(store, s.generator, s.config, s.logger)
	if err := pipeline.BuildKnowledgeBase(ctx, pages, findings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	analysis, err := pipeline.Answer(ctx, query, s.config.TopK)
	if err != nil {
		logger.Error("analysis failed", zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	logger.Info("analysis completed",
		zap.String("url", rawURL),
		zap.Int("pages", len(pages)))

	return report.Assemble(findings, analysis, len(pages)), nil
}

// CrawlOnly crawls rawURL without analysing it. An unreachable seed yields an
// empty result rather than an error.
func (s *Service) CrawlOnly(ctx context.Context, rawURL string) (crawler.CrawlResult, error) {
	ctx = ensureRequestID(ctx)

	pages, err := s.crawler.Crawl(ctx, rawURL)
	if err != nil {
		if errors.Is(err, crawler.ErrInvalidSeed) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}
	return pages, nil
}

// SaveCrawl stores pages under the host of rawURL and returns their location.
// It returns an empty location when no repository is configured.
func (s *Service) SaveCrawl(ctx context.Context, rawURL string, pages crawler.CrawlResult) (string, error) {
	if s.crawls == nil {
		return "", nil
	}

	seed, err := crawler.ParseSeed(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	location, err := s.crawls.Save(ctx, seed.Host, pages)
	if err != nil {
		return "", err
	}

	crawler.ContextLogger(ctx, s.logger).Info("crawl saved",
		zap.String("domain", seed.Host),
		zap.String("location", location))
	return location, nil
}

func ensureRequestID(ctx context.Context) context.Context {
	if crawler.RequestID(ctx) != "" {
		return ctx
	}
	return crawler.WithRequestID(ctx, crawler.NewRequestID())
}
