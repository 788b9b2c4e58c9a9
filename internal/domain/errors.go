// SPDX-License-Identifier: Apache-2.0

package domain

import "errors"

// Batch-level structural errors. Any of these rejects the whole batch
// before per-event processing starts.
var ErrCustomerIDRequired = errors.New("customerId is required")
var ErrTestRunIDRequired = errors.New("testRunId is required")
var ErrNoEvents = errors.New("no events provided")

// ErrDuplicateTestCase is returned by the repository when an insert loses to
// an already-persisted record for the same (testRunId, testCaseId) pair.
var ErrDuplicateTestCase = errors.New("test case already recorded for test run")

// ErrRunNotFound is returned by the read side when a testRunId has no records.
var ErrRunNotFound = errors.New("test run not found")
