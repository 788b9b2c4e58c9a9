// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"
	"mime/multipart"

	"github.com/transitdash/testresults/internal/aggregate"
	"github.com/transitdash/testresults/internal/domain"
)

// BatchProcessor is the write side: one batch in, one ordered report out.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, batch domain.BatchRequest, uploads []*multipart.FileHeader) (domain.BatchReport, error)
}

// ResultsReader is the read side over persisted execution records.
type ResultsReader interface {
	List(ctx context.Context, f aggregate.Filter) (aggregate.Page, error)
	RunDetailByID(ctx context.Context, testRunID string) (aggregate.RunDetail, error)
	CustomerIndexByID(ctx context.Context, customerID int64) (aggregate.CustomerIndex, error)
}

// HealthChecker reports backing-store readiness for the v1 health endpoint.
type HealthChecker interface {
	Check(ctx context.Context) error
}
