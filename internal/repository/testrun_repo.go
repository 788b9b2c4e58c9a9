// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transitdash/testresults/internal/domain"
)

// TestRunRepository persists and reads execution records. Create is the only
// mutation path: records are never updated or deleted once accepted.
type TestRunRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewTestRunRepository(pool *pgxpool.Pool, logger *slog.Logger) *TestRunRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &TestRunRepository{
		pool:   pool,
		logger: logger,
	}
}

// CreateTestRun inserts one record conditionally: the UNIQUE constraint on
// (test_run_id, test_case_id) makes the first writer win, so two concurrent
// batches cannot both persist the same pair. Zero rows affected means the
// pair was already taken.
func (r *TestRunRepository) CreateTestRun(ctx context.Context, rec domain.TestRunRecord) error {
	var artifacts []byte
	if len(rec.Artifacts) > 0 {
		encoded, err := json.Marshal(rec.Artifacts)
		if err != nil {
			return fmt.Errorf("encode artifacts: %w", err)
		}
		artifacts = encoded
	}

	cmd, err := r.pool.Exec(ctx, `
		INSERT INTO test_runs (
			run_id, test_run_id, customer_id, source_system, test_case_id,
			execution_date, result, observed_time_ms, executed_by, remarks, artifacts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (test_run_id, test_case_id) DO NOTHING
	`,
		rec.RunID,
		rec.TestRunID,
		rec.CustomerID,
		rec.SourceSystem,
		rec.TestCaseID,
		rec.ExecutionDate,
		rec.Result,
		rec.ObservedTimeMs,
		rec.ExecutedBy,
		rec.Remarks,
		artifacts,
	)
	if err != nil {
		r.logger.Error("insert test run failed",
			"run_id", rec.RunID,
			"test_run_id", rec.TestRunID,
			"test_case_id", rec.TestCaseID,
			"error", err,
		)
		return err
	}

	if cmd.RowsAffected() == 0 {
		return domain.ErrDuplicateTestCase
	}

	r.logger.Info("test run recorded",
		"run_id", rec.RunID,
		"test_run_id", rec.TestRunID,
		"test_case_id", rec.TestCaseID,
	)
	return nil
}

const selectColumns = `
	run_id, test_run_id, customer_id, source_system, test_case_id,
	execution_date, result, observed_time_ms, executed_by, remarks, artifacts
`

func (r *TestRunRepository) ListAll(ctx context.Context) ([]domain.TestRunRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM test_runs ORDER BY created_at ASC, run_id ASC`,
	)
	if err != nil {
		r.logger.Error("list all test runs failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *TestRunRepository) ListByTestRunID(ctx context.Context, testRunID string) ([]domain.TestRunRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM test_runs WHERE test_run_id=$1 ORDER BY created_at ASC, run_id ASC`,
		testRunID,
	)
	if err != nil {
		r.logger.Error("list test runs by run id failed", "test_run_id", testRunID, "error", err)
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *TestRunRepository) ListByCustomerID(ctx context.Context, customerID int64) ([]domain.TestRunRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM test_runs WHERE customer_id=$1 ORDER BY created_at ASC, run_id ASC`,
		customerID,
	)
	if err != nil {
		r.logger.Error("list test runs by customer failed", "customer_id", customerID, "error", err)
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]domain.TestRunRecord, error) {
	out := make([]domain.TestRunRecord, 0, 16)

	for rows.Next() {
		var rec domain.TestRunRecord
		var artifacts []byte
		if err := rows.Scan(
			&rec.RunID,
			&rec.TestRunID,
			&rec.CustomerID,
			&rec.SourceSystem,
			&rec.TestCaseID,
			&rec.ExecutionDate,
			&rec.Result,
			&rec.ObservedTimeMs,
			&rec.ExecutedBy,
			&rec.Remarks,
			&artifacts,
		); err != nil {
			return nil, err
		}
		if len(artifacts) > 0 {
			if err := json.Unmarshal(artifacts, &rec.Artifacts); err != nil {
				return nil, fmt.Errorf("decode artifacts for run %s: %w", rec.RunID, err)
			}
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
