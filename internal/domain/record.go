// SPDX-License-Identifier: Apache-2.0

package domain

// Artifact is one attachment referenced by a test run record: a screenshot,
// a log excerpt, an uploaded file, etc.
type Artifact struct {
	Type        string `json:"type"`
	URI         string `json:"uri"`
	Filename    string `json:"filename,omitempty"`
	Description string `json:"description"`
}

// TestRunRecord is the persisted result of one test case execution.
// Within a single TestRunID at most one record exists per TestCaseID;
// the repository enforces that with a uniqueness constraint.
type TestRunRecord struct {
	RunID          string     `json:"runId"`
	TestRunID      string     `json:"testRunId"`
	CustomerID     int64      `json:"customerId"`
	SourceSystem   string     `json:"sourceSystem"`
	TestCaseID     string     `json:"testCaseId"`
	ExecutionDate  string     `json:"executionDate"`
	Result         string     `json:"result"`
	ObservedTimeMs int64      `json:"observedTimeMs"`
	ExecutedBy     string     `json:"executedBy"`
	Remarks        string     `json:"remarks"`
	Artifacts      []Artifact `json:"artifacts,omitempty"`
}

// RequirementRecord captures a REQUIREMENT event.
type RequirementRecord struct {
	RequirementID string `json:"requirementId"`
	CustomerID    int64  `json:"customerId"`
	SourceSystem  string `json:"sourceSystem"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	Component     string `json:"component"`
}

// TestCaseRecord captures a TEST_CASE event (test case metadata, distinct
// from an execution record).
type TestCaseRecord struct {
	TestCaseID   string `json:"testCaseId"`
	CustomerID   int64  `json:"customerId"`
	SourceSystem string `json:"sourceSystem"`
	Title        string `json:"title"`
	Component    string `json:"component"`
	Priority     string `json:"priority"`
}

// DefectRecord captures a DEFECT event.
type DefectRecord struct {
	DefectID     string `json:"defectId"`
	CustomerID   int64  `json:"customerId"`
	SourceSystem string `json:"sourceSystem"`
	Severity     string `json:"severity"`
	Summary      string `json:"summary"`
	Status       string `json:"status"`
	TestCaseID   string `json:"testCaseId,omitempty"`
}

// TestTypeSummaryRecord captures a TEST_TYPE_SUMMARY event: per-test-type
// totals reported by the source system itself.
type TestTypeSummaryRecord struct {
	TestType     string `json:"testType"`
	CustomerID   int64  `json:"customerId"`
	SourceSystem string `json:"sourceSystem"`
	TotalCases   int64  `json:"totalCases"`
	Passed       int64  `json:"passed"`
	Failed       int64  `json:"failed"`
	Skipped      int64  `json:"skipped"`
}

// TransitMetricsRecord captures a TRANSIT_METRICS event.
type TransitMetricsRecord struct {
	Metric       string  `json:"metric"`
	CustomerID   int64   `json:"customerId"`
	SourceSystem string  `json:"sourceSystem"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
	RecordedAt   string  `json:"recordedAt"`
}
