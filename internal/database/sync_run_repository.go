package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/symphonia/tms-sync/internal/models"
)

// SyncRunRepository persists sync run summaries in PostgreSQL. It implements
// carriersync.RunStore.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new repository for sync runs.
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Save stores a finished run.
func (r *SyncRunRepository) Save(ctx context.Context, run *models.SyncRun) error {
	var errorsJSON []byte
	if len(run.Errors) > 0 {
		var err error
		if errorsJSON, err = json.Marshal(run.Errors); err != nil {
			return fmt.Errorf("failed to marshal run errors: %w", err)
		}
	}

	query := `
		INSERT INTO sync_runs (
			id, tms_type, status, started_at, finished_at,
			pages_fetched, records_seen, records_filtered,
			records_created, records_updated,
			errors, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.TMSType, string(run.Status), run.StartedAt, run.FinishedAt,
		run.PagesFetched, run.RecordsSeen, run.RecordsFiltered,
		run.RecordsCreated, run.RecordsUpdated,
		errorsJSON, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run %s: %w", run.ID, err)
	}
	return nil
}

// ListByType returns the most recent runs for a tmsType, newest first.
func (r *SyncRunRepository) ListByType(ctx context.Context, tmsType string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, tms_type, status, started_at, finished_at,
		       pages_fetched, records_seen, records_filtered,
		       records_created, records_updated,
		       errors, error_message
		FROM sync_runs
		WHERE tms_type = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, tmsType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var finishedAt sql.NullTime
		var errorsJSON []byte

		if err := rows.Scan(
			&run.ID, &run.TMSType, &run.Status, &run.StartedAt, &finishedAt,
			&run.PagesFetched, &run.RecordsSeen, &run.RecordsFiltered,
			&run.RecordsCreated, &run.RecordsUpdated,
			&errorsJSON, &run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &run.Errors); err != nil {
				return nil, fmt.Errorf("failed to parse run errors: %w", err)
			}
		}

		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneOlderThan removes run history beyond the retention window. Returns the
// number of rows deleted.
func (r *SyncRunRepository) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sync_runs WHERE started_at < NOW() - ($1 || ' days')::interval", days,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync runs: %w", err)
	}
	return res.RowsAffected()
}
