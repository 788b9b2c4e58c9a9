// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/transitdash/testresults/internal/domain"
)

func newRunID() string {
	return uuid.NewString()
}

func failedOutcome(kind domain.EventKind, msg string) domain.Outcome {
	return domain.Outcome{
		Status:    domain.OutcomeFailed,
		EventKind: string(kind),
		Error:     msg,
	}
}

// handleTestRun builds a candidate execution record, attaches declared and
// uploaded artifacts, and attempts the conditional insert. Uploaded files
// are written to storage before the insert, so a duplicate event can leave
// its files behind; the records themselves are never duplicated.
func (s *Service) handleTestRun(ctx context.Context, batch domain.BatchRequest, ev domain.Event, uploads []*multipart.FileHeader) domain.Outcome {
	var caseID string
	if ev.TestCase != nil {
		caseID = ev.TestCase.ID.String()
	}
	if caseID == "" {
		return failedOutcome(domain.KindTestRun, "testCase.id is required")
	}
	if ev.Result == "" {
		return failedOutcome(domain.KindTestRun, "result is required")
	}
	if ev.ExecutedBy == "" {
		return failedOutcome(domain.KindTestRun, "executedBy is required")
	}

	artifacts := make([]domain.Artifact, 0, len(ev.Artifacts)+len(uploads))
	for _, a := range ev.Artifacts {
		artifactType := a.Type
		if artifactType == "" {
			artifactType = "unknown"
		}
		artifacts = append(artifacts, domain.Artifact{
			Type:        artifactType,
			URI:         a.URI,
			Description: a.Description,
		})
	}

	for _, file := range uploads {
		if s.files == nil || file == nil || file.Filename == "" {
			continue
		}
		path, err := s.files.Save(batch.TestRunID, caseID, file)
		if err != nil {
			s.logger.Warn("artifact upload skipped",
				"test_run_id", batch.TestRunID,
				"test_case_id", caseID,
				"filename", file.Filename,
				"error", err,
			)
			continue
		}
		artifacts = append(artifacts, domain.Artifact{
			Type:        "uploaded_file",
			URI:         path,
			Filename:    file.Filename,
			Description: "Uploaded file: " + file.Filename,
		})
	}

	executionDate := ev.ExecutionDate
	if executionDate == "" {
		executionDate = s.now().Format(time.RFC3339)
	}

	rec := domain.TestRunRecord{
		RunID:          s.newID(),
		TestRunID:      batch.TestRunID,
		CustomerID:     batch.CustomerID,
		SourceSystem:   batch.SourceSystem,
		TestCaseID:     caseID,
		ExecutionDate:  executionDate,
		Result:         ev.Result,
		ObservedTimeMs: ev.ObservedTimeMs,
		ExecutedBy:     ev.ExecutedBy,
		Remarks:        ev.Remarks,
		Artifacts:      artifacts,
	}

	if err := s.runs.CreateTestRun(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateTestCase) {
			// The duplicate outcome reports the candidate's generated id,
			// not the id of the record that won the pair.
			return domain.Outcome{
				Status:     domain.OutcomeDuplicate,
				RunID:      rec.RunID,
				TestCaseID: caseID,
				Message:    fmt.Sprintf("Test case %s already exists in test run %s", caseID, batch.TestRunID),
			}
		}

		s.logger.Error("create test run failed",
			"test_run_id", batch.TestRunID,
			"test_case_id", caseID,
			"error", err,
		)
		return domain.Outcome{
			Status:     domain.OutcomeFailed,
			RunID:      rec.RunID,
			TestCaseID: caseID,
			Error:      "Failed to create test run",
		}
	}

	return domain.Outcome{
		Status:     domain.OutcomeAccepted,
		RunID:      rec.RunID,
		TestCaseID: caseID,
		TestRunID:  batch.TestRunID,
		Result:     rec.Result,
		ExecutedBy: rec.ExecutedBy,
		Artifacts:  len(artifacts),
	}
}

func (s *Service) handleRequirement(ctx context.Context, batch domain.BatchRequest, ev domain.Event) domain.Outcome {
	if ev.Requirement == nil || ev.Requirement.ID.String() == "" {
		return failedOutcome(domain.KindRequirement, "requirement.id is required")
	}

	rec := domain.RequirementRecord{
		RequirementID: ev.Requirement.ID.String(),
		CustomerID:    batch.CustomerID,
		SourceSystem:  batch.SourceSystem,
		Title:         ev.Requirement.Title,
		Status:        ev.Requirement.Status,
		Component:     ev.Requirement.Component,
	}

	if err := s.catalog.UpsertRequirement(ctx, rec); err != nil {
		s.logger.Error("upsert requirement failed", "requirement_id", rec.RequirementID, "error", err)
		return failedOutcome(domain.KindRequirement, "Failed to store requirement")
	}

	return domain.Outcome{
		Status:    domain.OutcomeAccepted,
		EventKind: string(domain.KindRequirement),
		Message:   "Requirement " + rec.RequirementID + " processed",
	}
}

func (s *Service) handleTestCase(ctx context.Context, batch domain.BatchRequest, ev domain.Event) domain.Outcome {
	if ev.TestCase == nil || ev.TestCase.ID.String() == "" {
		return failedOutcome(domain.KindTestCase, "testCase.id is required")
	}

	rec := domain.TestCaseRecord{
		TestCaseID:   ev.TestCase.ID.String(),
		CustomerID:   batch.CustomerID,
		SourceSystem: batch.SourceSystem,
		Title:        ev.TestCase.Title,
		Component:    ev.TestCase.Component,
		Priority:     ev.TestCase.Priority,
	}

	if err := s.catalog.UpsertTestCase(ctx, rec); err != nil {
		s.logger.Error("upsert test case failed", "test_case_id", rec.TestCaseID, "error", err)
		return failedOutcome(domain.KindTestCase, "Failed to store test case")
	}

	return domain.Outcome{
		Status:     domain.OutcomeAccepted,
		EventKind:  string(domain.KindTestCase),
		TestCaseID: rec.TestCaseID,
		Message:    "Test case " + rec.TestCaseID + " processed",
	}
}

func (s *Service) handleDefect(ctx context.Context, batch domain.BatchRequest, ev domain.Event) domain.Outcome {
	if ev.Defect == nil || ev.Defect.ID.String() == "" {
		return failedOutcome(domain.KindDefect, "defect.id is required")
	}

	status := ev.Defect.Status
	if status == "" {
		status = "OPEN"
	}

	var linkedCase string
	if ev.TestCase != nil {
		linkedCase = ev.TestCase.ID.String()
	}

	rec := domain.DefectRecord{
		DefectID:     ev.Defect.ID.String(),
		CustomerID:   batch.CustomerID,
		SourceSystem: batch.SourceSystem,
		Severity:     ev.Defect.Severity,
		Summary:      ev.Defect.Summary,
		Status:       status,
		TestCaseID:   linkedCase,
	}

	if err := s.catalog.UpsertDefect(ctx, rec); err != nil {
		s.logger.Error("upsert defect failed", "defect_id", rec.DefectID, "error", err)
		return failedOutcome(domain.KindDefect, "Failed to store defect")
	}

	return domain.Outcome{
		Status:    domain.OutcomeAccepted,
		EventKind: string(domain.KindDefect),
		Message:   "Defect " + rec.DefectID + " processed",
	}
}

func (s *Service) handleTestTypeSummary(ctx context.Context, batch domain.BatchRequest, ev domain.Event) domain.Outcome {
	if ev.TestType == "" {
		return failedOutcome(domain.KindTestTypeSummary, "testType is required")
	}

	rec := domain.TestTypeSummaryRecord{
		TestType:     ev.TestType,
		CustomerID:   batch.CustomerID,
		SourceSystem: batch.SourceSystem,
		TotalCases:   ev.TotalCases,
		Passed:       ev.Passed,
		Failed:       ev.Failed,
		Skipped:      ev.Skipped,
	}

	if err := s.catalog.UpsertTestTypeSummary(ctx, rec); err != nil {
		s.logger.Error("upsert test type summary failed", "test_type", rec.TestType, "error", err)
		return failedOutcome(domain.KindTestTypeSummary, "Failed to store test type summary")
	}

	return domain.Outcome{
		Status:    domain.OutcomeAccepted,
		EventKind: string(domain.KindTestTypeSummary),
		Message:   "Test type summary " + rec.TestType + " processed",
	}
}

func (s *Service) handleTransitMetrics(ctx context.Context, batch domain.BatchRequest, ev domain.Event) domain.Outcome {
	if ev.Metric == "" {
		return failedOutcome(domain.KindTransitMetrics, "metric is required")
	}

	recordedAt := ev.RecordedAt
	if recordedAt == "" {
		recordedAt = s.now().Format(time.RFC3339)
	}

	rec := domain.TransitMetricsRecord{
		Metric:       ev.Metric,
		CustomerID:   batch.CustomerID,
		SourceSystem: batch.SourceSystem,
		Value:        ev.Value,
		Unit:         ev.Unit,
		RecordedAt:   recordedAt,
	}

	if err := s.catalog.UpsertTransitMetrics(ctx, rec); err != nil {
		s.logger.Error("upsert transit metrics failed", "metric", rec.Metric, "error", err)
		return failedOutcome(domain.KindTransitMetrics, "Failed to store transit metrics")
	}

	return domain.Outcome{
		Status:    domain.OutcomeAccepted,
		EventKind: string(domain.KindTransitMetrics),
		Message:   "Transit metric " + rec.Metric + " processed",
	}
}
