package rag

import (
	"strings"

	"seoscope/vectorstore"
)

const SystemPrompt = "You are an expert SEO consultant. The user has crawled a website and " +
	"collected page metadata plus automated rule-based SEO checks. Relevant excerpts are " +
	"provided below as context.\n\n" +
	"Your job:\n" +
	"1. Identify the most impactful SEO issues across the site.\n" +
	"2. For EACH issue, cite the specific page URL and the exact problem.\n" +
	"3. Provide a concrete, actionable fix (not vague advice).\n" +
	"4. Prioritise issues by potential traffic impact (critical → minor).\n" +
	"5. End with a short overall score (1-10) and a one-paragraph summary.\n\n" +
	"Format your answer in **Markdown** with clear headings and bullet points."

const contextSeparator = "\n\n---\n\n"

// FormatContext renders retrieved documents as source-labelled blocks in
// retrieval order.
func FormatContext(results []vectorstore.Result) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = "[Source: " + r.Source + "]\n" + r.Text
	}
	return strings.Join(blocks, contextSeparator)
}

func UserMessage(context, query string) string {
	return "### Retrieved context\n\n" + context + contextSeparator + "### User question\n\n" + query
}
