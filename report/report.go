package report

import "seoscope/rules"

// AnalysisReport is the final output of an analysis.
type AnalysisReport struct {
	RulesSummary  rules.Summary `json:"rules_summary"`
	AIAnalysis    string        `json:"ai_analysis"`
	PagesAnalyzed int           `json:"pages_analyzed"`
}

func Assemble(findings []rules.Finding, analysis string, pageCount int) *AnalysisReport {
	checks := findings
	if checks == nil {
		checks = []rules.Finding{}
	}
	return &AnalysisReport{
		RulesSummary:  rules.Summary{Checks: checks},
		AIAnalysis:    analysis,
		PagesAnalyzed: pageCount,
	}
}
