// SPDX-License-Identifier: Apache-2.0

package domain

// OutcomeStatus is the three-state verdict for one event. Duplicate is not
// an error: it means an earlier submission already owns the
// (testRunId, testCaseId) pair.
type OutcomeStatus string

const (
	OutcomeAccepted  OutcomeStatus = "accepted"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is the per-event verdict returned to the client. It is never
// persisted. Fields beyond Status are populated as far as the event got
// through its handler, so clients can correlate and retry precisely.
type Outcome struct {
	Status     OutcomeStatus `json:"status"`
	RunID      string        `json:"runId,omitempty"`
	TestCaseID string        `json:"testCaseId,omitempty"`
	TestRunID  string        `json:"testRunId,omitempty"`
	Result     string        `json:"result,omitempty"`
	ExecutedBy string        `json:"executedBy,omitempty"`
	Artifacts  int           `json:"artifacts,omitempty"`
	EventKind  string        `json:"eventKind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// BatchReport folds the ordered per-event outcomes into batch-level tallies.
// Items preserves event order and always has one entry per submitted event.
type BatchReport struct {
	Accepted   int       `json:"accepted"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	Items      []Outcome `json:"items"`
}

// Add appends an outcome and bumps the matching counter.
func (r *BatchReport) Add(o Outcome) {
	switch o.Status {
	case OutcomeAccepted:
		r.Accepted++
	case OutcomeDuplicate:
		r.Duplicates++
	default:
		r.Failed++
	}
	r.Items = append(r.Items, o)
}
