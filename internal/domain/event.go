// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind is the closed set of telemetry kinds a batch may carry.
// Dispatch is an exhaustive switch over this enumeration; there is no
// runtime handler registry.
type EventKind string

const (
	KindTestRun         EventKind = "TEST_RUN"
	KindRequirement     EventKind = "REQUIREMENT"
	KindTestCase        EventKind = "TEST_CASE"
	KindDefect          EventKind = "DEFECT"
	KindTestTypeSummary EventKind = "TEST_TYPE_SUMMARY"
	KindTransitMetrics  EventKind = "TRANSIT_METRICS"
)

// Kinds lists every known event kind, in wire order.
func Kinds() []EventKind {
	return []EventKind{
		KindTestRun,
		KindRequirement,
		KindTestCase,
		KindDefect,
		KindTestTypeSummary,
		KindTransitMetrics,
	}
}

// ParseEventKind normalizes a declared kind string. The raw value is
// case-insensitive on the wire; an unknown kind is reported verbatim so the
// per-event failure can name it.
func ParseEventKind(raw string) (EventKind, bool) {
	switch EventKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case KindTestRun:
		return KindTestRun, true
	case KindRequirement:
		return KindRequirement, true
	case KindTestCase:
		return KindTestCase, true
	case KindDefect:
		return KindDefect, true
	case KindTestTypeSummary:
		return KindTestTypeSummary, true
	case KindTransitMetrics:
		return KindTransitMetrics, true
	default:
		return "", false
	}
}

// FlexID is an identifier that source systems send as either a JSON string
// or a bare number; it is coerced to its string form.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// TestCaseRef is the testCase sub-object of TEST_RUN and TEST_CASE events.
type TestCaseRef struct {
	ID        FlexID `json:"id"`
	Title     string `json:"title"`
	Component string `json:"component"`
	Priority  string `json:"priority"`
}

// RequirementRef is the requirement sub-object of REQUIREMENT events.
type RequirementRef struct {
	ID        FlexID `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Component string `json:"component"`
}

// DefectRef is the defect sub-object of DEFECT events.
type DefectRef struct {
	ID       FlexID `json:"id"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Status   string `json:"status"`
}

// ArtifactInput is one JSON-declared artifact on a TEST_RUN event. Omitted
// sub-fields are defaulted during handling (type falls back to "unknown").
type ArtifactInput struct {
	Type        string `json:"type"`
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// Event is one unit of telemetry inside an ingestion batch. It is a tagged
// union over EventKind: each kind reads its own subset of fields and ignores
// the rest. Events are transient; only the records derived from them persist.
type Event struct {
	Kind string `json:"kind"`

	// TEST_RUN / TEST_CASE
	TestCase       *TestCaseRef    `json:"testCase,omitempty"`
	Result         string          `json:"result,omitempty"`
	ExecutedBy     string          `json:"executedBy,omitempty"`
	ExecutionDate  string          `json:"executionDate,omitempty"`
	ObservedTimeMs int64           `json:"observedTimeMs,omitempty"`
	Remarks        string          `json:"remarks,omitempty"`
	Artifacts      []ArtifactInput `json:"artifacts,omitempty"`

	// REQUIREMENT
	Requirement *RequirementRef `json:"requirement,omitempty"`

	// DEFECT
	Defect *DefectRef `json:"defect,omitempty"`

	// TEST_TYPE_SUMMARY
	TestType   string `json:"testType,omitempty"`
	TotalCases int64  `json:"totalCases,omitempty"`
	Passed     int64  `json:"passed,omitempty"`
	Failed     int64  `json:"failed,omitempty"`
	Skipped    int64  `json:"skipped,omitempty"`

	// TRANSIT_METRICS
	Metric     string  `json:"metric,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	RecordedAt string  `json:"recordedAt,omitempty"`
}

// BatchRequest is one ingestion request: an ordered sequence of events under
// a single customer/run pair.
type BatchRequest struct {
	CustomerID   int64   `json:"customerId"`
	TestRunID    string  `json:"testRunId"`
	SourceSystem string  `json:"sourceSystem"`
	Events       []Event `json:"events"`
}

// Validate applies the batch-level structural gate. A violation fails the
// whole batch before any event is processed.
func (b BatchRequest) Validate() error {
	if b.CustomerID <= 0 {
		return ErrCustomerIDRequired
	}
	if strings.TrimSpace(b.TestRunID) == "" {
		return ErrTestRunIDRequired
	}
	if len(b.Events) == 0 {
		return ErrNoEvents
	}
	return nil
}
