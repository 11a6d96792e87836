package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

// Crawler walks a single site breadth-first, following internal links only.
type Crawler struct {
	fetcher Fetcher
	config  *CrawlerConfig
	logger  *zap.Logger
}

// fetchResult is the outcome of visiting one URL: a page or the reason it was dropped.
type fetchResult struct {
	url  string
	page *PageRecord
	err  error
}

func NewCrawler(fetcher Fetcher, logger *zap.Logger, config *CrawlerConfig) *Crawler {
	return &Crawler{
		fetcher: fetcher,
		config:  config.withDefaults(),
		logger:  logger,
	}
}

// Crawl visits at most MaxPages URLs reachable from seedURL. Pages that cannot be
// fetched or are not HTML are logged and left out of the result; an unreachable
// seed yields an empty result. Only an invalid seed or a cancelled context is an error.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) (CrawlResult, error) {
	seed, err := ParseSeed(seedURL)
	if err != nil {
		return nil, err
	}

	scope := NewScope(seed)
	frontier := NewFrontier(seed.String())
	logger := ContextLogger(ctx, c.logger).With(
		zap.String("seed", seed.String()),
		zap.String("domain", scope.Domain()))

	result := CrawlResult{}
	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("crawl interrupted: %w", err)
		}

		remaining := c.config.MaxPages - frontier.VisitedCount()
		if remaining <= 0 {
			break
		}
		batch := frontier.Pop(min(c.config.Workers, remaining))
		if len(batch) == 0 {
			break
		}

		for _, res := range c.visitAll(ctx, batch, scope) {
			if res.err != nil {
				logger.Warn("skipping page", zap.String("url", res.url), zap.Error(res.err))
				continue
			}
			result = append(result, *res.page)
			for _, link := range res.page.InternalLinks {
				frontier.Push(link)
			}
		}
	}

	logger.Info("crawl completed",
		zap.Int("pages", len(result)),
		zap.Int("visited", frontier.VisitedCount()),
		zap.Int("pending", frontier.Pending()))

	return result, nil
}

// visitAll fetches a batch concurrently and returns the results in batch order.
func (c *Crawler) visitAll(ctx context.Context, batch []string, scope *Scope) []fetchResult {
	results := make([]fetchResult, len(batch))
	if len(batch) == 1 {
		results[0] = c.visit(ctx, batch[0], scope)
		return results
	}

	var wg sync.WaitGroup
	for i, u := range batch {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			results[i] = c.visit(ctx, u, scope)
		}(i, u)
	}
	wg.Wait()
	return results
}

func (c *Crawler) visit(ctx context.Context, rawURL string, scope *Scope) fetchResult {
	res := fetchResult{url: rawURL}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		res.err = err
		return res
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	resp, err := c.fetcher.Fetch(fetchCtx, rawURL)
	if err != nil {
		res.err = err
		return res
	}
	if err := checkResponse(resp); err != nil {
		res.err = err
		return res
	}

	res.page = Extract(resp.Body, pageURL, scope)
	return res
}
