// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transitdash/testresults/internal/aggregate"
	"github.com/transitdash/testresults/internal/domain"
	"github.com/transitdash/testresults/internal/metrics"
	"github.com/transitdash/testresults/internal/transport/middleware"
)

// Uploads are capped per file by the artifact store; this bounds the whole
// multipart body.
const maxIngestBodyBytes = 64 << 20

var errNoData = errors.New("No data provided")

type batchResponse struct {
	Accepted   int              `json:"accepted"`
	Duplicates int              `json:"duplicates"`
	Failed     int              `json:"failed"`
	Items      []domain.Outcome `json:"items"`
	TestRunID  string           `json:"testRunId"`
	CustomerID int64            `json:"customerId"`
}

type paginationInfo struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// listFilters echoes the applied filters back to the client; unset filters
// serialize as null.
type listFilters struct {
	CustomerID   any `json:"customerId"`
	TestRunID    any `json:"testRunId"`
	TestCaseID   any `json:"testCaseId"`
	Result       any `json:"result"`
	SourceSystem any `json:"sourceSystem"`
}

type listResponse struct {
	TestRuns   []domain.TestRunRecord `json:"testRuns"`
	Pagination paginationInfo         `json:"pagination"`
	Filters    listFilters            `json:"filters"`
}

type runDetailResponse struct {
	TestRunID    string                 `json:"testRunId"`
	CustomerID   int64                  `json:"customerId"`
	SourceSystem string                 `json:"sourceSystem"`
	Summary      domain.RunSummary      `json:"summary"`
	TestCases    []aggregate.CaseDetail `json:"testCases"`
}

type customerRunsResponse struct {
	CustomerID    int64                    `json:"customerId"`
	TestRuns      []domain.CustomerSummary `json:"testRuns"`
	TotalTestRuns int                      `json:"totalTestRuns"`
}

type Deps struct {
	Processor        BatchProcessor
	Reader           ResultsReader
	Schema           HealthChecker
	Logger           *slog.Logger
	IngestRatePerMin int
	Version          string
	Commit           string
	BuildDate        string
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Init()
	version := valueOrDefault(deps.Version, "dev")
	commit := valueOrDefault(deps.Commit, "none")
	buildDate := valueOrDefault(deps.BuildDate, "unknown")

	r := chi.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(requestLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerRequestID},
		MaxAge:         300,
	}))

	// ---------------- HEALTH ----------------

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("health check hit")
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
			"database":  "PostgreSQL",
		})
	})

	r.Get("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		databaseCheck := "ok"

		if deps.Schema != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()

			if err := deps.Schema.Check(ctx); err != nil {
				logger.Warn("schema health check failed", "error", err)
				status = "degraded"
				code = http.StatusServiceUnavailable
				databaseCheck = err.Error()
			}
		}

		writeJSON(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
			"checks": map[string]string{
				"database": databaseCheck,
			},
			"endpoints": map[string]string{
				"test_results": "/api/v1/results/test-runs",
				"metrics":      "/metrics",
			},
		})
	})

	// ---------------- METRICS ----------------

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// ---------------- VERSION ----------------

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	})

	r.Route("/api/v1/results", func(api chi.Router) {

		// ---------------- INGEST BATCH ----------------

		api.With(middleware.IngestRateLimit(deps.IngestRatePerMin, logger)).
			Post("/test-runs", func(w http.ResponseWriter, r *http.Request) {
				batch, uploads, err := decodeBatchRequest(r)
				if err != nil {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}

				report, err := deps.Processor.ProcessBatch(r.Context(), batch, uploads)
				if err != nil {
					if errors.Is(err, domain.ErrCustomerIDRequired) ||
						errors.Is(err, domain.ErrTestRunIDRequired) ||
						errors.Is(err, domain.ErrNoEvents) {
						writeError(w, http.StatusBadRequest, err.Error())
						return
					}

					logger.Error("process batch failed", "test_run_id", batch.TestRunID, "error", err)
					writeError(w, http.StatusInternalServerError, "failed to process batch")
					return
				}

				writeJSON(w, http.StatusCreated, batchResponse{
					Accepted:   report.Accepted,
					Duplicates: report.Duplicates,
					Failed:     report.Failed,
					Items:      report.Items,
					TestRunID:  batch.TestRunID,
					CustomerID: batch.CustomerID,
				})
			})

		// ---------------- LIST RECORDS ----------------

		api.Get("/test-runs", func(w http.ResponseWriter, r *http.Request) {
			filter, filters, err := parseListQuery(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}

			page, err := deps.Reader.List(r.Context(), filter)
			if err != nil {
				logger.Error("list test runs failed", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to list test runs")
				return
			}

			records := page.Records
			if records == nil {
				records = []domain.TestRunRecord{}
			}

			writeJSON(w, http.StatusOK, listResponse{
				TestRuns: records,
				Pagination: paginationInfo{
					Total:   page.Total,
					Limit:   page.Limit,
					Offset:  page.Offset,
					HasMore: page.HasMore,
				},
				Filters: filters,
			})
		})

		// ---------------- RUN DETAIL ----------------

		api.Get("/test-runs/{testRunId}", func(w http.ResponseWriter, r *http.Request) {
			testRunID := chi.URLParam(r, "testRunId")

			detail, err := deps.Reader.RunDetailByID(r.Context(), testRunID)
			if err != nil {
				if errors.Is(err, domain.ErrRunNotFound) {
					logger.Warn("test run not found", "test_run_id", testRunID)
					writeError(w, http.StatusNotFound, fmt.Sprintf("Test run %s not found", testRunID))
					return
				}

				logger.Error("get run detail failed", "test_run_id", testRunID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to get test run")
				return
			}

			writeJSON(w, http.StatusOK, runDetailResponse{
				TestRunID:    detail.TestRunID,
				CustomerID:   detail.CustomerID,
				SourceSystem: detail.SourceSystem,
				Summary:      detail.Summary,
				TestCases:    detail.TestCases,
			})
		})

		// ---------------- CUSTOMER INDEX ----------------

		api.Get("/customers/{customerId}/test-runs", func(w http.ResponseWriter, r *http.Request) {
			customerID, err := strconv.ParseInt(chi.URLParam(r, "customerId"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid customer ID")
				return
			}

			index, err := deps.Reader.CustomerIndexByID(r.Context(), customerID)
			if err != nil {
				logger.Error("get customer index failed", "customer_id", customerID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to list customer test runs")
				return
			}

			runs := index.TestRuns
			if runs == nil {
				runs = []domain.CustomerSummary{}
			}

			writeJSON(w, http.StatusOK, customerRunsResponse{
				CustomerID:    index.CustomerID,
				TestRuns:      runs,
				TotalTestRuns: len(runs),
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeBatchRequest reads a batch from either a plain JSON body or a
// multipart form where the "data" field carries the JSON and "files" parts
// carry uploaded artifacts.
func decodeBatchRequest(r *http.Request) (domain.BatchRequest, []*multipart.FileHeader, error) {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return domain.BatchRequest{}, nil, errNoData
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxIngestBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxIngestBodyBytes); err != nil {
			return domain.BatchRequest{}, nil, errors.New("invalid multipart form")
		}

		raw := strings.TrimSpace(r.FormValue("data"))
		if raw == "" {
			return domain.BatchRequest{}, nil, errNoData
		}

		var batch domain.BatchRequest
		if err := json.Unmarshal([]byte(raw), &batch); err != nil {
			return domain.BatchRequest{}, nil, errors.New("invalid JSON payload")
		}

		// Clients attach files under whatever field name suits them ("file",
		// "files", per-artifact names); every file part belongs to the batch.
		fields := make([]string, 0, len(r.MultipartForm.File))
		for field := range r.MultipartForm.File {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		var uploads []*multipart.FileHeader
		for _, field := range fields {
			uploads = append(uploads, r.MultipartForm.File[field]...)
		}

		return batch, uploads, nil
	}

	var batch domain.BatchRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&batch); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.BatchRequest{}, nil, errNoData
		}
		return domain.BatchRequest{}, nil, errors.New("invalid JSON payload")
	}

	// Ensure there is only one JSON object.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.BatchRequest{}, nil, errors.New("request body must contain exactly one JSON object")
	}

	return batch, nil, nil
}

func parseListQuery(r *http.Request) (aggregate.Filter, listFilters, error) {
	q := r.URL.Query()

	var filter aggregate.Filter
	var filters listFilters

	if raw := strings.TrimSpace(q.Get("customerId")); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return aggregate.Filter{}, listFilters{}, errors.New("invalid customerId")
		}
		filter.CustomerID = customerID
		filters.CustomerID = customerID
	}
	if v := q.Get("testRunId"); v != "" {
		filter.TestRunID = v
		filters.TestRunID = v
	}
	if v := q.Get("testCaseId"); v != "" {
		filter.TestCaseID = v
		filters.TestCaseID = v
	}
	if v := q.Get("result"); v != "" {
		filter.Result = v
		filters.Result = v
	}
	if v := q.Get("sourceSystem"); v != "" {
		filter.SourceSystem = v
		filters.SourceSystem = v
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return aggregate.Filter{}, listFilters{}, errors.New("invalid limit")
		}
		filter.Limit = limit
		filter.LimitSet = true
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return aggregate.Filter{}, listFilters{}, errors.New("invalid offset")
		}
		filter.Offset = offset
	}

	return filter, filters, nil
}

func valueOrDefault(value, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}
