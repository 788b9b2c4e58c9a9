// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/transitdash/testresults/internal/domain"
)

type fakeRunReader struct {
	records []domain.TestRunRecord
	err     error
}

func (f *fakeRunReader) ListAll(ctx context.Context) ([]domain.TestRunRecord, error) {
	return f.records, f.err
}

func (f *fakeRunReader) ListByTestRunID(ctx context.Context, testRunID string) ([]domain.TestRunRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.TestRunRecord, 0, len(f.records))
	for _, rec := range f.records {
		if rec.TestRunID == testRunID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRunReader) ListByCustomerID(ctx context.Context, customerID int64) ([]domain.TestRunRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.TestRunRecord, 0, len(f.records))
	for _, rec := range f.records {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(runID, caseID, result string, customerID int64) domain.TestRunRecord {
	return domain.TestRunRecord{
		RunID:          runID + "-" + caseID,
		TestRunID:      runID,
		CustomerID:     customerID,
		SourceSystem:   "UI Navigator",
		TestCaseID:     caseID,
		Result:         result,
		ObservedTimeMs: 100,
		ExecutedBy:     "robot",
		ExecutionDate:  "2026-08-30T12:00:00Z",
	}
}

func TestListAppliesEveryFilter(t *testing.T) {
	reader := &fakeRunReader{records: []domain.TestRunRecord{
		record("R1", "TC1", "Pass", 1),
		record("R1", "TC2", "Fail", 1),
		record("R2", "TC1", "Pass", 2),
	}}
	reader.records[2].SourceSystem = "ROBOT"
	engine := NewEngine(reader, discardLogger())

	cases := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "no filters", filter: Filter{}, want: 3},
		{name: "customer", filter: Filter{CustomerID: 1}, want: 2},
		{name: "test run", filter: Filter{TestRunID: "R2"}, want: 1},
		{name: "test case", filter: Filter{TestCaseID: "TC1"}, want: 2},
		{name: "result", filter: Filter{Result: "Fail"}, want: 1},
		{name: "source system", filter: Filter{SourceSystem: "ROBOT"}, want: 1},
		{name: "combined", filter: Filter{CustomerID: 1, Result: "Pass"}, want: 1},
		{name: "no match", filter: Filter{CustomerID: 99}, want: 0},
	}

	for _, tc := range cases {
		page, err := engine.List(context.Background(), tc.filter)
		if err != nil {
			t.Fatalf("%s: list: %v", tc.name, err)
		}
		if page.Total != tc.want {
			t.Fatalf("%s: expected total %d got %d", tc.name, tc.want, page.Total)
		}
		if len(page.Records) != tc.want {
			t.Fatalf("%s: expected %d records got %d", tc.name, tc.want, len(page.Records))
		}
	}
}

func TestListPagination(t *testing.T) {
	records := make([]domain.TestRunRecord, 0, 150)
	for i := 0; i < 150; i++ {
		records = append(records, record("R1", fmt.Sprintf("TC%03d", i), "Pass", 1))
	}
	engine := NewEngine(&fakeRunReader{records: records}, discardLogger())

	// Defaults: limit 100, offset 0.
	page, err := engine.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Records) != 100 {
		t.Fatalf("expected default limit of 100, got %d records", len(page.Records))
	}
	if page.Records[0].TestCaseID != "TC000" {
		t.Fatalf("expected natural storage order, got %s first", page.Records[0].TestCaseID)
	}
	if !page.HasMore {
		t.Fatal("expected hasMore with 150 records")
	}

	page, err = engine.List(context.Background(), Filter{Limit: 100, Offset: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Records) != 50 {
		t.Fatalf("expected 50 remaining records got %d", len(page.Records))
	}
	if page.HasMore {
		t.Fatal("expected hasMore=false on the last page")
	}

	page, err = engine.List(context.Background(), Filter{Limit: 10, Offset: 500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Records) != 0 {
		t.Fatalf("expected empty page beyond range got %d", len(page.Records))
	}

	exact, err := engine.List(context.Background(), Filter{Limit: 150})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if exact.HasMore {
		t.Fatal("expected hasMore=false when limit covers everything")
	}
}

func TestListExplicitZeroLimit(t *testing.T) {
	records := []domain.TestRunRecord{
		record("R1", "TC1", "Pass", 1),
		record("R1", "TC2", "Fail", 1),
	}
	engine := NewEngine(&fakeRunReader{records: records}, discardLogger())

	// limit=0 supplied by the client is an empty page, not the default size.
	page, err := engine.List(context.Background(), Filter{Limit: 0, LimitSet: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Records) != 0 {
		t.Fatalf("expected empty page got %d records", len(page.Records))
	}
	if page.Total != 2 {
		t.Fatalf("expected total still counted got %d", page.Total)
	}
	if page.Limit != 0 {
		t.Fatalf("expected limit 0 echoed got %d", page.Limit)
	}
	if !page.HasMore {
		t.Fatal("expected hasMore with records beyond the empty page")
	}
}

func TestListPropagatesStorageError(t *testing.T) {
	engine := NewEngine(&fakeRunReader{err: errors.New("boom")}, discardLogger())
	if _, err := engine.List(context.Background(), Filter{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunDetail(t *testing.T) {
	engine := NewEngine(&fakeRunReader{records: []domain.TestRunRecord{
		record("R1", "TC1", "Pass", 101),
		record("R1", "TC2", "Fail", 101),
		record("R2", "TC1", "Pass", 101),
	}}, discardLogger())

	detail, err := engine.RunDetailByID(context.Background(), "R1")
	if err != nil {
		t.Fatalf("run detail: %v", err)
	}

	if detail.TestRunID != "R1" || detail.CustomerID != 101 {
		t.Fatalf("unexpected header %s/%d", detail.TestRunID, detail.CustomerID)
	}
	if detail.Summary.Total != 2 || detail.Summary.Passed != 1 || detail.Summary.Failed != 1 || detail.Summary.Skipped != 0 {
		t.Fatalf("unexpected summary %+v", detail.Summary)
	}
	if detail.Summary.TotalTimeMs != 200 {
		t.Fatalf("expected total time 200 got %d", detail.Summary.TotalTimeMs)
	}
	if len(detail.TestCases) != 2 {
		t.Fatalf("expected 2 cases got %d", len(detail.TestCases))
	}
}

func TestRunDetailNotFound(t *testing.T) {
	engine := NewEngine(&fakeRunReader{}, discardLogger())
	if _, err := engine.RunDetailByID(context.Background(), "MISSING"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound got %v", err)
	}
}

func TestRunDetailLastRecordWinsButSummaryCountsAll(t *testing.T) {
	first := record("R1", "TC1", "Fail", 1)
	second := record("R1", "TC1", "Pass", 1)
	second.ExecutedBy = "human"
	engine := NewEngine(&fakeRunReader{records: []domain.TestRunRecord{first, second}}, discardLogger())

	detail, err := engine.RunDetailByID(context.Background(), "R1")
	if err != nil {
		t.Fatalf("run detail: %v", err)
	}

	// One case entry with the last-enumerated fields, two summary counts.
	if len(detail.TestCases) != 1 {
		t.Fatalf("expected 1 case entry got %d", len(detail.TestCases))
	}
	if detail.TestCases[0].Result != "Pass" || detail.TestCases[0].ExecutedBy != "human" {
		t.Fatalf("expected last record's fields, got %+v", detail.TestCases[0])
	}
	if detail.Summary.Total != 2 || detail.Summary.Passed != 1 || detail.Summary.Failed != 1 {
		t.Fatalf("expected summary over raw list, got %+v", detail.Summary)
	}
}

func TestCustomerIndexGroupsByRun(t *testing.T) {
	records := []domain.TestRunRecord{
		record("R1", "TC1", "Pass", 5),
		record("R1", "TC2", "Fail", 5),
		record("R2", "TC1", "Skipped", 5),
		record("R9", "TC1", "Pass", 6),
	}
	records[1].ExecutionDate = "2026-08-31T09:00:00Z"
	engine := NewEngine(&fakeRunReader{records: records}, discardLogger())

	index, err := engine.CustomerIndexByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("customer index: %v", err)
	}

	if index.CustomerID != 5 {
		t.Fatalf("expected customer 5 got %d", index.CustomerID)
	}
	if len(index.TestRuns) != 2 {
		t.Fatalf("expected 2 runs got %d", len(index.TestRuns))
	}

	r1 := index.TestRuns[0]
	if r1.TestRunID != "R1" {
		t.Fatalf("expected first-seen order, got %s first", r1.TestRunID)
	}
	if r1.TotalCases != 2 || r1.Passed != 1 || r1.Failed != 1 || r1.Skipped != 0 {
		t.Fatalf("unexpected R1 summary %+v", r1)
	}
	if r1.TotalTimeMs != 200 {
		t.Fatalf("expected total time 200 got %d", r1.TotalTimeMs)
	}
	if r1.LastExecution != "2026-08-31T09:00:00Z" {
		t.Fatalf("expected last-enumerated execution date, got %s", r1.LastExecution)
	}

	r2 := index.TestRuns[1]
	if r2.TestRunID != "R2" || r2.Skipped != 1 {
		t.Fatalf("unexpected R2 summary %+v", r2)
	}
}

func TestCustomerIndexEmpty(t *testing.T) {
	engine := NewEngine(&fakeRunReader{}, discardLogger())
	index, err := engine.CustomerIndexByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("customer index: %v", err)
	}
	if len(index.TestRuns) != 0 {
		t.Fatalf("expected empty index got %d runs", len(index.TestRuns))
	}
}
