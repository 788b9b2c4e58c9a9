// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transitdash/testresults/internal/domain"
)

// CatalogRepository persists the non-execution event kinds. Each kind is a
// plain upsert keyed by customer plus the kind's natural identifier.
type CatalogRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewCatalogRepository(pool *pgxpool.Pool, logger *slog.Logger) *CatalogRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &CatalogRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *CatalogRepository) UpsertRequirement(ctx context.Context, rec domain.RequirementRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO requirements (customer_id, requirement_id, source_system, title, status, component)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id, requirement_id) DO UPDATE
		SET source_system=EXCLUDED.source_system,
		    title=EXCLUDED.title,
		    status=EXCLUDED.status,
		    component=EXCLUDED.component,
		    updated_at=NOW()
	`,
		rec.CustomerID,
		rec.RequirementID,
		rec.SourceSystem,
		rec.Title,
		rec.Status,
		rec.Component,
	)
	if err != nil {
		r.logger.Error("upsert requirement failed",
			"customer_id", rec.CustomerID,
			"requirement_id", rec.RequirementID,
			"error", err,
		)
	}
	return err
}

func (r *CatalogRepository) UpsertTestCase(ctx context.Context, rec domain.TestCaseRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO test_cases (customer_id, test_case_id, source_system, title, component, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id, test_case_id) DO UPDATE
		SET source_system=EXCLUDED.source_system,
		    title=EXCLUDED.title,
		    component=EXCLUDED.component,
		    priority=EXCLUDED.priority,
		    updated_at=NOW()
	`,
		rec.CustomerID,
		rec.TestCaseID,
		rec.SourceSystem,
		rec.Title,
		rec.Component,
		rec.Priority,
	)
	if err != nil {
		r.logger.Error("upsert test case failed",
			"customer_id", rec.CustomerID,
			"test_case_id", rec.TestCaseID,
			"error", err,
		)
	}
	return err
}

func (r *CatalogRepository) UpsertDefect(ctx context.Context, rec domain.DefectRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO defects (customer_id, defect_id, source_system, severity, summary, status, test_case_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (customer_id, defect_id) DO UPDATE
		SET source_system=EXCLUDED.source_system,
		    severity=EXCLUDED.severity,
		    summary=EXCLUDED.summary,
		    status=EXCLUDED.status,
		    test_case_id=EXCLUDED.test_case_id,
		    updated_at=NOW()
	`,
		rec.CustomerID,
		rec.DefectID,
		rec.SourceSystem,
		rec.Severity,
		rec.Summary,
		rec.Status,
		rec.TestCaseID,
	)
	if err != nil {
		r.logger.Error("upsert defect failed",
			"customer_id", rec.CustomerID,
			"defect_id", rec.DefectID,
			"error", err,
		)
	}
	return err
}

func (r *CatalogRepository) UpsertTestTypeSummary(ctx context.Context, rec domain.TestTypeSummaryRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO test_type_summaries (customer_id, test_type, source_system, total_cases, passed, failed, skipped)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (customer_id, test_type) DO UPDATE
		SET source_system=EXCLUDED.source_system,
		    total_cases=EXCLUDED.total_cases,
		    passed=EXCLUDED.passed,
		    failed=EXCLUDED.failed,
		    skipped=EXCLUDED.skipped,
		    updated_at=NOW()
	`,
		rec.CustomerID,
		rec.TestType,
		rec.SourceSystem,
		rec.TotalCases,
		rec.Passed,
		rec.Failed,
		rec.Skipped,
	)
	if err != nil {
		r.logger.Error("upsert test type summary failed",
			"customer_id", rec.CustomerID,
			"test_type", rec.TestType,
			"error", err,
		)
	}
	return err
}

func (r *CatalogRepository) UpsertTransitMetrics(ctx context.Context, rec domain.TransitMetricsRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transit_metrics (customer_id, metric, source_system, value, unit, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id, metric) DO UPDATE
		SET source_system=EXCLUDED.source_system,
		    value=EXCLUDED.value,
		    unit=EXCLUDED.unit,
		    recorded_at=EXCLUDED.recorded_at,
		    updated_at=NOW()
	`,
		rec.CustomerID,
		rec.Metric,
		rec.SourceSystem,
		rec.Value,
		rec.Unit,
		rec.RecordedAt,
	)
	if err != nil {
		r.logger.Error("upsert transit metric failed",
			"customer_id", rec.CustomerID,
			"metric", rec.Metric,
			"error", err,
		)
	}
	return err
}
