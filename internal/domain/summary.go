// SPDX-License-Identifier: Apache-2.0

package domain

import "strings"

// ResultClass buckets a free-form result string into pass/fail/skip.
type ResultClass int

const (
	ResultPassed ResultClass = iota
	ResultFailed
	ResultSkipped
)

// ClassifyResult buckets a result string by case-insensitive substring:
// anything containing "pass" counts as passed, then anything containing
// "fail" as failed, everything else as skipped. Source systems report
// results as "Pass", "PASSED", "Fail - timeout" and similar.
func ClassifyResult(result string) ResultClass {
	lowered := strings.ToLower(result)
	switch {
	case strings.Contains(lowered, "pass"):
		return ResultPassed
	case strings.Contains(lowered, "fail"):
		return ResultFailed
	default:
		return ResultSkipped
	}
}

// RunSummary aggregates every raw record of one test run.
type RunSummary struct {
	Total       int   `json:"total"`
	Passed      int   `json:"passed"`
	Failed      int   `json:"failed"`
	Skipped     int   `json:"skipped"`
	TotalTimeMs int64 `json:"totalTime"`
}

// Tally folds one record into the summary.
func (s *RunSummary) Tally(rec TestRunRecord) {
	s.Total++
	switch ClassifyResult(rec.Result) {
	case ResultPassed:
		s.Passed++
	case ResultFailed:
		s.Failed++
	default:
		s.Skipped++
	}
	s.TotalTimeMs += rec.ObservedTimeMs
}

// CustomerSummary aggregates one test run inside a customer's index.
type CustomerSummary struct {
	TestRunID     string `json:"testRunId"`
	SourceSystem  string `json:"sourceSystem"`
	TotalCases    int    `json:"totalCases"`
	Passed        int    `json:"passed"`
	Failed        int    `json:"failed"`
	Skipped       int    `json:"skipped"`
	TotalTimeMs   int64  `json:"totalTime"`
	LastExecution string `json:"lastExecution"`
}

// Tally folds one record into the group. LastExecution tracks the
// last-enumerated record's execution date.
func (s *CustomerSummary) Tally(rec TestRunRecord) {
	s.TotalCases++
	switch ClassifyResult(rec.Result) {
	case ResultPassed:
		s.Passed++
	case ResultFailed:
		s.Failed++
	default:
		s.Skipped++
	}
	s.TotalTimeMs += rec.ObservedTimeMs
	s.LastExecution = rec.ExecutionDate
}
