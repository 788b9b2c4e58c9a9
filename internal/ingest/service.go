// SPDX-License-Identifier: Apache-2.0

// Package ingest implements the write side: one batch request in, one
// ordered per-event report out. Events are processed strictly in array
// order; a later event may depend on duplicate state established by an
// earlier write in the same batch.
package ingest

import (
	"context"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/transitdash/testresults/internal/domain"
	"github.com/transitdash/testresults/internal/metrics"
)

// DefaultSourceSystem is assumed when a batch does not declare one.
const DefaultSourceSystem = "UI Navigator"

// TestRunWriter persists execution records. CreateTestRun must enforce
// first-writer-wins per (testRunId, testCaseId) atomically and return
// domain.ErrDuplicateTestCase when the pair is already taken.
type TestRunWriter interface {
	CreateTestRun(ctx context.Context, rec domain.TestRunRecord) error
}

// CatalogWriter persists the non-execution event kinds, one upsert path per
// kind. These carry no duplicate-detection requirement.
type CatalogWriter interface {
	UpsertRequirement(ctx context.Context, rec domain.RequirementRecord) error
	UpsertTestCase(ctx context.Context, rec domain.TestCaseRecord) error
	UpsertDefect(ctx context.Context, rec domain.DefectRecord) error
	UpsertTestTypeSummary(ctx context.Context, rec domain.TestTypeSummaryRecord) error
	UpsertTransitMetrics(ctx context.Context, rec domain.TransitMetricsRecord) error
}

// ArtifactSaver stores one uploaded file and returns its stored path.
type ArtifactSaver interface {
	Save(testRunID, testCaseID string, file *multipart.FileHeader) (string, error)
}

type Service struct {
	runs    TestRunWriter
	catalog CatalogWriter
	files   ArtifactSaver
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func NewService(runs TestRunWriter, catalog CatalogWriter, files ArtifactSaver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		runs:    runs,
		catalog: catalog,
		files:   files,
		logger:  logger,
		now:     time.Now,
		newID:   newRunID,
	}
}

// ProcessBatch validates the structural gate, then routes every event to its
// kind handler in order. Past the gate the batch never aborts: validation
// and storage failures become per-item outcomes.
func (s *Service) ProcessBatch(ctx context.Context, batch domain.BatchRequest, uploads []*multipart.FileHeader) (domain.BatchReport, error) {
	if err := batch.Validate(); err != nil {
		metrics.IncBatchRejected()
		s.logger.Warn("batch rejected",
			"test_run_id", batch.TestRunID,
			"customer_id", batch.CustomerID,
			"error", err,
		)
		return domain.BatchReport{}, err
	}

	if batch.SourceSystem == "" {
		batch.SourceSystem = DefaultSourceSystem
	}

	started := s.now()
	report := domain.BatchReport{Items: make([]domain.Outcome, 0, len(batch.Events))}

	for _, ev := range batch.Events {
		outcome := s.route(ctx, batch, ev, uploads)
		report.Add(outcome)
		metrics.IncEventOutcome(metricKind(ev), outcome.Status)
	}

	metrics.IncBatches()
	metrics.ObserveBatchSize(len(batch.Events))
	metrics.ObserveBatchDuration(time.Since(started))

	s.logger.Info("batch processed",
		"test_run_id", batch.TestRunID,
		"customer_id", batch.CustomerID,
		"events", len(batch.Events),
		"accepted", report.Accepted,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
	)

	return report, nil
}

// route dispatches one event by its declared kind. The kind set is closed;
// anything else fails the event without touching the rest of the batch.
func (s *Service) route(ctx context.Context, batch domain.BatchRequest, ev domain.Event, uploads []*multipart.FileHeader) domain.Outcome {
	kind, ok := domain.ParseEventKind(ev.Kind)
	if !ok {
		unknown := strings.ToUpper(strings.TrimSpace(ev.Kind))
		return domain.Outcome{
			Status:    domain.OutcomeFailed,
			EventKind: unknown,
			Error:     "Unknown event kind: " + unknown,
		}
	}

	switch kind {
	case domain.KindTestRun:
		return s.handleTestRun(ctx, batch, ev, uploads)
	case domain.KindRequirement:
		return s.handleRequirement(ctx, batch, ev)
	case domain.KindTestCase:
		return s.handleTestCase(ctx, batch, ev)
	case domain.KindDefect:
		return s.handleDefect(ctx, batch, ev)
	case domain.KindTestTypeSummary:
		return s.handleTestTypeSummary(ctx, batch, ev)
	case domain.KindTransitMetrics:
		return s.handleTransitMetrics(ctx, batch, ev)
	}

	// Unreachable: ParseEventKind is exhaustive over the switch above.
	unknown := strings.ToUpper(strings.TrimSpace(ev.Kind))
	return domain.Outcome{
		Status:    domain.OutcomeFailed,
		EventKind: unknown,
		Error:     "Unknown event kind: " + unknown,
	}
}

func metricKind(ev domain.Event) string {
	if kind, ok := domain.ParseEventKind(ev.Kind); ok {
		return string(kind)
	}
	return "UNKNOWN"
}
