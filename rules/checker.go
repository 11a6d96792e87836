package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"seoscope/crawler"
)

const (
	MaxTitleLength           = 60
	MaxMetaDescriptionLength = 160
	MinWordCount             = 300
)

// Finding lists the rule violations of one page. Issues is empty, never nil,
// for a page that passes every check.
type Finding struct {
	Page   string   `json:"page"`
	Issues []string `json:"issues"`
}

// Summary is the serialised shape of all findings of a crawl.
type Summary struct {
	Checks []Finding `json:"checks"`
}

// Check evaluates every page independently and returns one Finding per page,
// in input order.
func Check(pages crawler.CrawlResult) []Finding {
	findings := make([]Finding, 0, len(pages))
	for i := range pages {
		findings = append(findings, CheckPage(&pages[i]))
	}
	return findings
}

// CheckPage runs the heuristics in a fixed order: title, meta description,
// H1, content length, internal links.
func CheckPage(page *crawler.PageRecord) Finding {
	issues := []string{}

	title := strings.TrimSpace(page.Title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		issues = append(issues, "missing title")
	case n > MaxTitleLength:
		issues = append(issues, fmt.Sprintf("title too long (%d chars) — keep under %d.", n, MaxTitleLength))
	}

	meta := strings.TrimSpace(page.MetaDescription)
	switch n := utf8.RuneCountInString(meta); {
	case n == 0:
		issues = append(issues, "missing meta description")
	case n > MaxMetaDescriptionLength:
		issues = append(issues, fmt.Sprintf("meta description too long (%d chars) — keep under %d.", n, MaxMetaDescriptionLength))
	}

	switch len(page.H1) {
	case 0:
		issues = append(issues, "missing H1")
	case 1:
	default:
		issues = append(issues, "multiple H1s — use only one per page.")
	}

	if words := len(strings.Fields(page.TextContent)); words < MinWordCount {
		issues = append(issues, fmt.Sprintf("content too short (%d words) — aim for %d+.", words, MinWordCount))
	}

	if len(page.InternalLinks) == 0 {
		issues = append(issues, "no internal links found.")
	}

	return Finding{Page: page.URL, Issues: issues}
}
