package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"seoscope/analyzer"
	"seoscope/crawler"
	"seoscope/report"
)

const maxRequestBody = 1 << 20

type AnalyzeRequest struct {
	URL   string `json:"url"`
	Query string `json:"query"`
}

type AnalyzeResponse struct {
	Status       string                 `json:"status"`
	PagesCrawled int                    `json:"pages_crawled"`
	Report       *report.AnalysisReport `json:"report"`
}

type CrawlRequest struct {
	URL string `json:"url"`
}

type CrawlResponse struct {
	Status       string `json:"status"`
	PagesCrawled int    `json:"pages_crawled"`
	SavedTo      string `json:"saved_to,omitempty"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "SEO Analyzer API"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	rep, err := s.analyzer.Analyze(r.Context(), req.URL, req.Query)
	if err != nil {
		s.writeServiceError(w, r, "SEO analysis failed", err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Status:       "success",
		PagesCrawled: rep.PagesAnalyzed,
		Report:       rep,
	})
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	pages, err := s.analyzer.CrawlOnly(r.Context(), req.URL)
	if err != nil {
		s.writeServiceError(w, r, "Failed to crawl site", err)
		return
	}

	savedTo, err := s.analyzer.SaveCrawl(r.Context(), req.URL, pages)
	if err != nil {
		s.writeServiceError(w, r, "Failed to crawl site", err)
		return
	}

	writeJSON(w, http.StatusOK, CrawlResponse{
		Status:       "success",
		PagesCrawled: len(pages),
		SavedTo:      savedTo,
	})
}

// writeServiceError maps the analyzer error taxonomy onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	logger := crawler.ContextLogger(r.Context(), s.logger)

	switch {
	case errors.Is(err, analyzer.ErrNoPages):
		writeError(w, http.StatusBadRequest, "No pages could be crawled from this URL.")
	case errors.Is(err, analyzer.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case analyzer.IsGenerationError(err):
		logger.Error("generation service failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", prefix, err))
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
