package models

import "time"

// SyncRunStatus is the state of a sync run.
type SyncRunStatus string

const (
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

// SyncError describes one record-level failure inside a run.
type SyncError struct {
	ExternalID string    `json:"external_id,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SyncRun is the summary of one pagination-filter-reconcile execution for a
// single connection. Runs are persisted for the operational history and
// surfaced to the health-check collaborator.
type SyncRun struct {
	ID              string        `json:"id"`
	TMSType         string        `json:"tms_type"`
	Status          SyncRunStatus `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	PagesFetched    int           `json:"pages_fetched"`
	RecordsSeen     int           `json:"records_seen"`
	RecordsFiltered int           `json:"records_filtered"`
	RecordsCreated  int           `json:"records_created"`
	RecordsUpdated  int           `json:"records_updated"`
	Errors          []SyncError   `json:"errors,omitempty"`

	// ErrorMessage holds the first error's detail for failed runs so the
	// trigger caller never sees a raw stack.
	ErrorMessage string `json:"error_message,omitempty"`
}

// RecordError appends a record-level error to the run.
func (r *SyncRun) RecordError(externalID string, err error) {
	r.Errors = append(r.Errors, SyncError{
		ExternalID: externalID,
		Message:    err.Error(),
		OccurredAt: time.Now(),
	})
}

// ErrorCount returns the number of recorded errors.
func (r *SyncRun) ErrorCount() int {
	return len(r.Errors)
}
