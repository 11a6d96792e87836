package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"seoscope/crawler"
	"seoscope/llm"
	"seoscope/rag"
	"seoscope/storage"
	"seoscope/vectorstore"
)

type stubCrawler struct {
	pages crawlFunc
}

type crawlFunc func(seed string) (crawler.CrawlResult, error)

func (c stubCrawler) Crawl(ctx context.Context, seedURL string) (crawler.CrawlResult, error) {
	return c.pages(seedURL)
}

func fixedPages(pages ...crawler.PageRecord) stubCrawler {
	return stubCrawler{pages: func(string) (crawler.CrawlResult, error) {
		return crawler.CrawlResult(pages), nil
	}}
}

// lengthEmbedder embeds a text as its length, which is enough for ordering.
type lengthEmbedder struct{ err error }

func (e lengthEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

type recordingGenerator struct {
	requests []llm.Request
	answer   string
	err      error
}

func (g *recordingGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.requests = append(g.requests, req)
	return g.answer, g.err
}

type countingFactory struct {
	vectorstore.MemoryFactory
	created int
}

func (f *countingFactory) NewStore(ctx context.Context) (vectorstore.Store, error) {
	f.created++
	return f.MemoryFactory.NewStore(ctx)
}

func homePage() crawler.PageRecord {
	return crawler.PageRecord{
		URL:             "https://example.com",
		MetaDescription: strings.Repeat("d", 200),
		H1:              []string{"Welcome"},
		TextContent:     strings.TrimSpace(strings.Repeat("word ", 50)),
	}
}

func newTestService(c SiteCrawler, gen llm.Generator, opts ...Option) (*Service, *countingFactory) {
	factory := &countingFactory{MemoryFactory: vectorstore.MemoryFactory{Embedder: lengthEmbedder{}}}
	return NewService(c, factory, gen, rag.DefaultConfig(), zap.NewNop(), opts...), factory
}

func TestAnalyze_AssemblesReport(t *testing.T) {
	gen := &recordingGenerator{answer: "## Findings\n- fix the title"}
	svc, factory := newTestService(fixedPages(homePage()), gen)

	r, err := svc.Analyze(context.Background(), "https://example.com", "What should I fix?")
	require.NoError(t, err)

	assert.Equal(t, 1, r.PagesAnalyzed)
	assert.Equal(t, "## Findings\n- fix the title", r.AIAnalysis)
	require.Len(t, r.RulesSummary.Checks, 1)
	assert.Equal(t, []string{
		"missing title",
		"meta description too long (200 chars) — keep under 160.",
		"content too short (50 words) — aim for 300+.",
		"no internal links found.",
	}, r.RulesSummary.Checks[0].Issues)

	assert.Equal(t, 1, factory.created)
	require.Len(t, gen.requests, 1)
	assert.True(t, strings.HasSuffix(gen.requests[0].User, "### User question\n\nWhat should I fix?"))
	assert.Contains(t, gen.requests[0].User, "[Source: rules:https://example.com]")
	assert.Contains(t, gen.requests[0].User, "[Source: https://example.com]")
}

func TestAnalyze_EmptyQueryUsesDefault(t *testing.T) {
	gen := &recordingGenerator{answer: "ok"}
	svc, _ := newTestService(fixedPages(homePage()), gen)

	_, err := svc.Analyze(context.Background(), "https://example.com", "  ")
	require.NoError(t, err)
	require.Len(t, gen.requests, 1)
	assert.True(t, strings.HasSuffix(gen.requests[0].User, DefaultQuery))
}

func TestAnalyze_FreshStorePerRequest(t *testing.T) {
	gen := &recordingGenerator{answer: "ok"}
	c := stubCrawler{pages: func(seed string) (crawler.CrawlResult, error) {
		page := homePage()
		page.URL = seed
		return crawler.CrawlResult{page}, nil
	}}
	svc, factory := newTestService(c, gen)

	_, err := svc.Analyze(context.Background(), "https://first.com", "")
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), "https://second.com", "")
	require.NoError(t, err)

	assert.Equal(t, 2, factory.created)
	require.Len(t, gen.requests, 2)
	assert.NotContains(t, gen.requests[1].User, "first.com")
}

func TestAnalyze_NoPagesIsClientError(t *testing.T) {
	gen := &recordingGenerator{}
	svc, factory := newTestService(fixedPages(), gen)

	_, err := svc.Analyze(context.Background(), "https://example.com", "")
	assert.ErrorIs(t, err, ErrNoPages)
	assert.True(t, IsClientError(err))
	assert.Equal(t, 0, factory.created)
	assert.Empty(t, gen.requests)
}

func TestAnalyze_InvalidURL(t *testing.T) {
	c := crawler.NewCrawler(nil, zap.NewNop(), nil)
	svc, _ := newTestService(c, &recordingGenerator{})

	_, err := svc.Analyze(context.Background(), "not-a-url", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, IsClientError(err))
}

func TestAnalyze_UnreachableSeedIsClientError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	config := &crawler.CrawlerConfig{MaxPages: 5, Workers: 1, RequestTimeout: time.Second}
	c := crawler.NewCrawler(crawler.NewCollyFetcher(config, zap.NewNop()), zap.NewNop(), config)
	svc, _ := newTestService(c, &recordingGenerator{})

	_, err := svc.Analyze(context.Background(), addr, "")
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestAnalyze_GenerationFailureIsServerError(t *testing.T) {
	gen := &recordingGenerator{err: fmt.Errorf("%w: %w", llm.ErrGeneration, llm.ErrRateLimited)}
	svc, _ := newTestService(fixedPages(homePage()), gen)

	r, err := svc.Analyze(context.Background(), "https://example.com", "")
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.ErrorIs(t, err, llm.ErrRateLimited)
	assert.True(t, IsGenerationError(err))
	assert.False(t, IsClientError(err))
}

func TestAnalyze_EmbeddingFailureIsServerError(t *testing.T) {
	factory := &vectorstore.MemoryFactory{Embedder: lengthEmbedder{err: errors.New("tei down")}}
	svc := NewService(fixedPages(homePage()), factory, &recordingGenerator{}, rag.DefaultConfig(), zap.NewNop())

	_, err := svc.Analyze(context.Background(), "https://example.com", "")
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.False(t, IsGenerationError(err))
}

func TestCrawlOnly_ReturnsPages(t *testing.T) {
	svc, _ := newTestService(fixedPages(homePage()), &recordingGenerator{})

	pages, err := svc.CrawlOnly(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestSaveCrawl(t *testing.T) {
	repo, err := storage.OpenCrawlCollection(filepath.Join(t.TempDir(), "crawls.db"))
	require.NoError(t, err)
	defer repo.Close()

	svc, _ := newTestService(fixedPages(homePage()), &recordingGenerator{}, WithCrawlRepository(repo))
	ctx := context.Background()

	pages, err := svc.CrawlOnly(ctx, "https://example.com/start")
	require.NoError(t, err)
	location, err := svc.SaveCrawl(ctx, "https://example.com/start", pages)
	require.NoError(t, err)
	assert.Equal(t, repo.Location("example.com"), location)

	doc, err := repo.Load(ctx, "example.com")
	require.NoError(t, err)
	assert.Len(t, doc.Pages, 1)
}

func TestSaveCrawl_WithoutRepository(t *testing.T) {
	svc, _ := newTestService(fixedPages(), &recordingGenerator{})

	location, err := svc.SaveCrawl(context.Background(), "https://example.com", nil)
	require.NoError(t, err)
	assert.Empty(t, location)
}
