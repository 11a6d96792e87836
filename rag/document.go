package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"seoscope/crawler"
	"seoscope/rules"
	"seoscope/vectorstore"
)

const (
	// SnippetLength caps the page text carried into a page document.
	SnippetLength = 2000

	RuleSourcePrefix = "rules:"
)

type DocumentKind int

const (
	KindPage DocumentKind = iota
	KindRuleFinding
)

func (k DocumentKind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindRuleFinding:
		return "rule_finding"
	default:
		return "unknown"
	}
}

// Document is one unit of retrievable knowledge about the crawled site.
type Document struct {
	Kind   DocumentKind
	Source string
	Text   string
}

func (d Document) vector() vectorstore.Document {
	return vectorstore.Document{Source: d.Source, Text: d.Text}
}

// PageDocument summarises the metadata and opening text of a crawled page.
func PageDocument(page *crawler.PageRecord) Document {
	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\n", page.URL)
	fmt.Fprintf(&sb, "Title: %s\n", page.Title)
	fmt.Fprintf(&sb, "Meta description: %s\n", page.MetaDescription)
	fmt.Fprintf(&sb, "H1 tags: %s\n", strings.Join(page.H1, ", "))
	fmt.Fprintf(&sb, "H2 tags: %s\n", strings.Join(page.H2, ", "))
	fmt.Fprintf(&sb, "Content snippet: %s", snippet(page.TextContent, SnippetLength))

	return Document{Kind: KindPage, Source: page.URL, Text: sb.String()}
}

// FindingDocument renders the issues of a finding. ok is false when the page
// passed every check.
func FindingDocument(f rules.Finding) (doc Document, ok bool) {
	if len(f.Issues) == 0 {
		return Document{}, false
	}

	lines := make([]string, 0, len(f.Issues)+1)
	lines = append(lines, fmt.Sprintf("Rule-based SEO issues for %s:", f.Page))
	for _, issue := range f.Issues {
		lines = append(lines, "  • "+issue)
	}

	return Document{
		Kind:   KindRuleFinding,
		Source: RuleSourcePrefix + f.Page,
		Text:   strings.Join(lines, "\n"),
	}, true
}

// Documents builds the knowledge base content: every page first, then every
// finding that has issues.
func Documents(pages crawler.CrawlResult, findings []rules.Finding) []Document {
	docs := make([]Document, 0, len(pages)+len(findings))
	for i := range pages {
		docs = append(docs, PageDocument(&pages[i]))
	}
	for _, f := range findings {
		if doc, ok := FindingDocument(f); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

func snippet(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
