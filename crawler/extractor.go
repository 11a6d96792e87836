package crawler

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MaxTextLength caps PageRecord.TextContent, counted in characters.
const MaxTextLength = 5000

const hiddenSelectors = "script, style, noscript, template"

// Extract builds a PageRecord from raw HTML. It never fails: malformed markup
// leaves the affected fields empty. A nil scope is derived from pageURL.
func Extract(body []byte, pageURL *url.URL, scope *Scope) *PageRecord {
	record := newPageRecord(pageURL.String())
	if scope == nil {
		scope = NewScope(pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return record
	}

	record.Title = collapseSpace(doc.Find("title").First().Text())
	record.MetaDescription = extractMetaDescription(doc)
	record.H1 = extractHeadings(doc, "h1")
	record.H2 = extractHeadings(doc, "h2")
	record.Canonical = extractCanonical(doc)
	record.AltTexts = extractAltTexts(doc)
	record.StructuredData = extractStructuredData(doc)
	record.InternalLinks, record.ExternalLinks = extractLinks(doc, pageURL, scope)
	record.TextContent = truncateText(extractVisibleText(doc), MaxTextLength)

	return record
}

func extractMetaDescription(doc *goquery.Document) string {
	var desc string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		content, _ := s.Attr("content")
		desc = strings.TrimSpace(content)
		return false
	})
	return desc
}

func extractHeadings(doc *goquery.Document, tag string) []string {
	headings := []string{}
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		headings = append(headings, collapseSpace(s.Text()))
	})
	return headings
}

func extractCanonical(doc *goquery.Document) string {
	var canonical string
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		for _, token := range strings.Fields(rel) {
			if strings.EqualFold(token, "canonical") {
				href, _ := s.Attr("href")
				canonical = strings.TrimSpace(href)
				return false
			}
		}
		return true
	})
	return canonical
}

func extractAltTexts(doc *goquery.Document) []string {
	alts := []string{}
	doc.Find("img[alt]").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		if alt = strings.TrimSpace(alt); alt != "" {
			alts = append(alts, alt)
		}
	})
	return alts
}

// extractStructuredData keeps every JSON-LD block that parses; the rest are dropped.
func extractStructuredData(doc *goquery.Document) []json.RawMessage {
	blocks := []json.RawMessage{}
	doc.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !strings.EqualFold(strings.TrimSpace(typ), "application/ld+json") {
			return
		}
		raw := bytes.TrimSpace([]byte(s.Text()))
		if len(raw) == 0 || !json.Valid(raw) {
			return
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return
		}
		blocks = append(blocks, json.RawMessage(buf.Bytes()))
	})
	return blocks
}

// extractLinks partitions every a[href] into internal and external absolute URLs.
// Each URL is reported once, in first-seen order.
func extractLinks(doc *goquery.Document, pageURL *url.URL, scope *Scope) ([]string, []string) {
	internal := []string{}
	external := []string{}
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, ok := resolveLink(pageURL, href)
		if !ok {
			return
		}
		link := u.String()
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		if scope.IsInternal(u) {
			internal = append(internal, link)
		} else {
			external = append(external, link)
		}
	})
	return internal, external
}

// extractVisibleText joins every text node outside hidden elements with single spaces.
func extractVisibleText(doc *goquery.Document) string {
	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Find(hiddenSelectors).Remove()

	var sb strings.Builder
	for _, n := range root.Nodes {
		collectText(n, &sb)
	}
	return collapseSpace(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	case html.CommentNode:
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, sb)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateText hard-cuts s to at most limit characters without splitting a rune.
func truncateText(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
