package crawler

import "encoding/json"

// PageRecord is everything extracted from one crawled page. It is never
// modified after the extractor returns it.
type PageRecord struct {
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	MetaDescription string            `json:"meta_description"`
	H1              []string          `json:"h1"`
	H2              []string          `json:"h2"`
	Canonical       string            `json:"canonical"`
	AltTexts        []string          `json:"alt_texts"`
	InternalLinks   []string          `json:"internal_links"`
	ExternalLinks   []string          `json:"external_links"`
	TextContent     string            `json:"text_content"`
	StructuredData  []json.RawMessage `json:"structured_data"`
}

// CrawlResult holds page records in breadth-first dequeue order.
type CrawlResult []PageRecord

func newPageRecord(pageURL string) *PageRecord {
	return &PageRecord{
		URL:            pageURL,
		H1:             []string{},
		H2:             []string{},
		AltTexts:       []string{},
		InternalLinks:  []string{},
		ExternalLinks:  []string{},
		StructuredData: []json.RawMessage{},
	}
}
