package carriersync

import (
	"errors"
	"fmt"
)

// Run-level refusal errors. These are returned synchronously, before any
// network call, and never produce a SyncRun.
var (
	// ErrConfigurationMissing means no connection is stored for the tmsType.
	ErrConfigurationMissing = errors.New("connection not configured")

	// ErrConnectionInactive means the stored connection has isActive=false.
	ErrConnectionInactive = errors.New("connection is not active")

	// ErrSyncInProgress means a run is already executing for the tmsType.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// ReconcileError wraps a single record's store failure. The orchestrator
// records it and continues with the next record.
type ReconcileError struct {
	ExternalID string
	Err        error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile carrier %s: %v", e.ExternalID, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}
