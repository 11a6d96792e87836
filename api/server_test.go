package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"seoscope/analyzer"
	"seoscope/crawler"
	"seoscope/llm"
	"seoscope/report"
	"seoscope/rules"
)

type fakeAnalyzer struct {
	report     *report.AnalysisReport
	pages      crawler.CrawlResult
	savedTo    string
	err        error
	gotURL     string
	gotQuery   string
	gotRequest string
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, rawURL, query string) (*report.AnalysisReport, error) {
	a.gotURL, a.gotQuery = rawURL, query
	a.gotRequest = crawler.RequestID(ctx)
	return a.report, a.err
}

func (a *fakeAnalyzer) CrawlOnly(ctx context.Context, rawURL string) (crawler.CrawlResult, error) {
	a.gotURL = rawURL
	return a.pages, a.err
}

func (a *fakeAnalyzer) SaveCrawl(ctx context.Context, rawURL string, pages crawler.CrawlResult) (string, error) {
	return a.savedTo, nil
}

func newTestServer(a Analyzer) *httptest.Server {
	return httptest.NewServer(NewServer(a, 8000, zap.NewNop()).Handler())
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRoot(t *testing.T) {
	server := newTestServer(&fakeAnalyzer{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SEO Analyzer API", out["message"])
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	server := newTestServer(&fakeAnalyzer{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyze_Success(t *testing.T) {
	a := &fakeAnalyzer{report: report.Assemble(
		[]rules.Finding{{Page: "https://example.com", Issues: []string{"missing title"}}},
		"## Report", 1)}
	server := newTestServer(a)
	defer server.Close()

	resp, out := post(t, server.URL+"/analyze", `{"url":"https://example.com","query":"how?"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, float64(1), out["pages_crawled"])
	rep := out["report"].(map[string]any)
	assert.Equal(t, "## Report", rep["ai_analysis"])
	assert.Equal(t, float64(1), rep["pages_analyzed"])
	assert.Contains(t, rep, "rules_summary")

	assert.Equal(t, "https://example.com", a.gotURL)
	assert.Equal(t, "how?", a.gotQuery)
	assert.Equal(t, resp.Header.Get("X-Request-ID"), a.gotRequest)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"no pages", analyzer.ErrNoPages, http.StatusBadRequest, "No pages could be crawled from this URL."},
		{"invalid", fmt.Errorf("%w: bad scheme", analyzer.ErrInvalidInput), http.StatusBadRequest, "invalid input: bad scheme"},
		{"generation", fmt.Errorf("%w: %w", analyzer.ErrAnalysisFailed, llm.ErrGeneration), http.StatusBadGateway, "SEO analysis failed"},
		{"other", fmt.Errorf("%w: qdrant down", analyzer.ErrAnalysisFailed), http.StatusInternalServerError, "qdrant down"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server := newTestServer(&fakeAnalyzer{err: c.err})
			defer server.Close()

			resp, out := post(t, server.URL+"/analyze", `{"url":"https://example.com"}`)
			assert.Equal(t, c.status, resp.StatusCode)
			assert.Contains(t, out["detail"], c.detail)
		})
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	server := newTestServer(&fakeAnalyzer{})
	defer server.Close()

	resp, _ := post(t, server.URL+"/analyze", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := post(t, server.URL+"/analyze", `{"query":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing url parameter", out["detail"])

	get, err := http.Get(server.URL + "/analyze")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestCrawl(t *testing.T) {
	a := &fakeAnalyzer{
		pages:   crawler.CrawlResult{{URL: "https://example.com/"}, {URL: "https://example.com/a"}},
		savedTo: "bolt://data/crawls.db#crawls/example.com",
	}
	server := newTestServer(a)
	defer server.Close()

	for _, path := range []string{"/crawl", "/crawl/"} {
		resp, out := post(t, server.URL+path, `{"url":"https://example.com/"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "success", out["status"])
		assert.Equal(t, float64(2), out["pages_crawled"])
		assert.Equal(t, "bolt://data/crawls.db#crawls/example.com", out["saved_to"])
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(&fakeAnalyzer{})
	defer server.Close()

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "content-type", resp.Header.Get("Access-Control-Allow-Headers"))
}
