package analyzer

import (
	"errors"

	"seoscope/llm"
)

var (
	// ErrInvalidInput marks a seed URL that is not an absolute http(s) URL.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoPages marks a crawl that produced no pages.
	ErrNoPages = errors.New("no pages could be crawled from this URL")
	// ErrAnalysisFailed wraps failures of the indexing, retrieval or
	// generation services.
	ErrAnalysisFailed = errors.New("seo analysis failed")
)

// IsClientError reports whether err is caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNoPages)
}

// IsGenerationError reports whether err came from the text-generation service.
func IsGenerationError(err error) bool {
	return errors.Is(err, llm.ErrGeneration)
}
