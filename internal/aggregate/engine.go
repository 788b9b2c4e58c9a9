// SPDX-License-Identifier: Apache-2.0

// Package aggregate implements the read side: pure folds over the persisted
// execution records. Nothing here caches or mutates.
package aggregate

import (
	"context"
	"log/slog"

	"github.com/transitdash/testresults/internal/domain"
	"github.com/transitdash/testresults/internal/metrics"
)

const defaultLimit = 100

// RunReader is the read surface of the execution-record repository.
type RunReader interface {
	ListAll(ctx context.Context) ([]domain.TestRunRecord, error)
	ListByTestRunID(ctx context.Context, testRunID string) ([]domain.TestRunRecord, error)
	ListByCustomerID(ctx context.Context, customerID int64) ([]domain.TestRunRecord, error)
}

// Filter narrows the unfiltered listing. Zero values impose no constraint;
// supplied values match by exact equality.
type Filter struct {
	CustomerID   int64
	TestRunID    string
	TestCaseID   string
	Result       string
	SourceSystem string
	Limit        int
	// LimitSet marks Limit as explicitly supplied, so a requested limit of
	// zero returns an empty page instead of the default page size.
	LimitSet bool
	Offset   int
}

// Page is one slice of the filtered listing.
type Page struct {
	Records []domain.TestRunRecord
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// CaseDetail is the per-case view inside a run detail. When the same case id
// appears in multiple raw records, the last-enumerated record's fields win.
type CaseDetail struct {
	TestCaseID     string            `json:"testCaseId"`
	Result         string            `json:"result"`
	ExecutedBy     string            `json:"executedBy"`
	ExecutionDate  string            `json:"executionDate"`
	ObservedTimeMs int64             `json:"observedTime"`
	Remarks        string            `json:"remarks"`
	Artifacts      []domain.Artifact `json:"artifacts,omitempty"`
}

// RunDetail is the grouped view of one test run. The summary counts every
// raw record, while TestCases holds one entry per distinct case id.
type RunDetail struct {
	TestRunID    string
	CustomerID   int64
	SourceSystem string
	Summary      domain.RunSummary
	TestCases    []CaseDetail
}

// CustomerIndex is the per-customer view: one summary per test run.
type CustomerIndex struct {
	CustomerID int64
	TestRuns   []domain.CustomerSummary
}

type Engine struct {
	runs   RunReader
	logger *slog.Logger
}

func NewEngine(runs RunReader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{runs: runs, logger: logger}
}

// List returns the records matching every supplied filter, in natural
// storage order, sliced by [offset, offset+limit).
func (e *Engine) List(ctx context.Context, f Filter) (Page, error) {
	metrics.IncReadQuery("listing")

	all, err := e.runs.ListAll(ctx)
	if err != nil {
		e.logger.Error("list records failed", "error", err)
		return Page{}, err
	}

	matched := make([]domain.TestRunRecord, 0, len(all))
	for _, rec := range all {
		if f.CustomerID != 0 && rec.CustomerID != f.CustomerID {
			continue
		}
		if f.TestRunID != "" && rec.TestRunID != f.TestRunID {
			continue
		}
		if f.TestCaseID != "" && rec.TestCaseID != f.TestCaseID {
			continue
		}
		if f.Result != "" && rec.Result != f.Result {
			continue
		}
		if f.SourceSystem != "" && rec.SourceSystem != f.SourceSystem {
			continue
		}
		matched = append(matched, rec)
	}

	limit := f.Limit
	if limit < 0 || (limit == 0 && !f.LimitSet) {
		limit = defaultLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(matched)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Page{
		Records: matched[start:end],
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}, nil
}

// RunDetailByID groups one run's records by case id and summarizes the full
// raw list. Returns domain.ErrRunNotFound when the run has no records.
func (e *Engine) RunDetailByID(ctx context.Context, testRunID string) (RunDetail, error) {
	metrics.IncReadQuery("run_detail")

	records, err := e.runs.ListByTestRunID(ctx, testRunID)
	if err != nil {
		e.logger.Error("run detail fetch failed", "test_run_id", testRunID, "error", err)
		return RunDetail{}, err
	}
	if len(records) == 0 {
		return RunDetail{}, domain.ErrRunNotFound
	}

	detail := RunDetail{
		TestRunID:    testRunID,
		CustomerID:   records[0].CustomerID,
		SourceSystem: records[0].SourceSystem,
	}

	byCase := make(map[string]int, len(records))
	for _, rec := range records {
		detail.Summary.Tally(rec)

		cd := CaseDetail{
			TestCaseID:     rec.TestCaseID,
			Result:         rec.Result,
			ExecutedBy:     rec.ExecutedBy,
			ExecutionDate:  rec.ExecutionDate,
			ObservedTimeMs: rec.ObservedTimeMs,
			Remarks:        rec.Remarks,
			Artifacts:      rec.Artifacts,
		}
		if idx, seen := byCase[rec.TestCaseID]; seen {
			detail.TestCases[idx] = cd
			continue
		}
		byCase[rec.TestCaseID] = len(detail.TestCases)
		detail.TestCases = append(detail.TestCases, cd)
	}

	return detail, nil
}

// CustomerIndexByID groups a customer's records by test run, in first-seen
// order, with one summary per run.
func (e *Engine) CustomerIndexByID(ctx context.Context, customerID int64) (CustomerIndex, error) {
	metrics.IncReadQuery("customer_index")

	records, err := e.runs.ListByCustomerID(ctx, customerID)
	if err != nil {
		e.logger.Error("customer index fetch failed", "customer_id", customerID, "error", err)
		return CustomerIndex{}, err
	}

	index := CustomerIndex{CustomerID: customerID}
	byRun := make(map[string]int, len(records))

	for _, rec := range records {
		idx, seen := byRun[rec.TestRunID]
		if !seen {
			idx = len(index.TestRuns)
			byRun[rec.TestRunID] = idx
			index.TestRuns = append(index.TestRuns, domain.CustomerSummary{
				TestRunID:    rec.TestRunID,
				SourceSystem: rec.SourceSystem,
			})
		}
		index.TestRuns[idx].Tally(rec)
	}

	return index, nil
}
