package crawler

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrNotHTML          = errors.New("response is not html")
)

type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves a single URL. The deadline of ctx bounds the request.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// CollyFetcher fetches pages through a colly collector. Every call works on a
// clone of the base collector so callbacks never leak between requests.
type CollyFetcher struct {
	collector *colly.Collector
	logger    *zap.Logger
}

func NewCollyFetcher(config *CrawlerConfig, logger *zap.Logger) *CollyFetcher {
	config = config.withDefaults()

	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(config.MaxBodySize),
	)
	c.SetRequestTimeout(config.RequestTimeout)

	return &CollyFetcher{
		collector: c,
		logger:    logger,
	}
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	c := f.collector.Clone()
	c.Context = ctx

	var (
		resp     *Response
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		resp = &Response{
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if resp == nil {
		return nil, fmt.Errorf("fetch %s: no response", url)
	}

	f.logger.Debug("fetched page",
		zap.String("url", url),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)))

	return resp, nil
}

// checkResponse accepts only 200 responses carrying HTML
func checkResponse(resp *Response) error {
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if !isHTML(resp.ContentType) {
		return fmt.Errorf("%w: %q", ErrNotHTML, resp.ContentType)
	}
	return nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
