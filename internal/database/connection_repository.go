package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/symphonia/tms-sync/internal/models"
)

// ConnectionRepository persists TMS connections in PostgreSQL. It implements
// carriersync.ConnectionStore; one row exists per tms_type.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository creates a new repository for TMS connections.
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

const connectionColumns = `
	tms_type, organization_name, is_active, connection_status,
	credentials, sync_config, stats,
	last_sync_at, last_sync_status, error_message,
	created_at, updated_at
`

// Get retrieves the connection for a tmsType, or nil when absent.
func (r *ConnectionRepository) Get(ctx context.Context, tmsType string) (*models.TMSConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM tms_connections
		WHERE tms_type = $1
	`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, tmsType))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection %s: %w", tmsType, err)
	}
	return conn, nil
}

// Upsert applies a partial merge in a single statement. Patch fields that are
// nil arrive as SQL NULL and COALESCE keeps the stored value; on first
// creation the same COALESCE falls through to the column default.
func (r *ConnectionRepository) Upsert(ctx context.Context, tmsType string, patch models.ConnectionPatch) (*models.TMSConnection, error) {
	defaultConfig, err := json.Marshal(models.DefaultSyncConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default sync config: %w", err)
	}

	var credentialsJSON, syncConfigJSON []byte
	if patch.Credentials != nil {
		if credentialsJSON, err = json.Marshal(patch.Credentials); err != nil {
			return nil, fmt.Errorf("failed to marshal credentials: %w", err)
		}
	}
	if patch.SyncConfig != nil {
		if syncConfigJSON, err = json.Marshal(patch.SyncConfig); err != nil {
			return nil, fmt.Errorf("failed to marshal sync config: %w", err)
		}
	}

	query := `
		INSERT INTO tms_connections (
			tms_type, organization_name, is_active, connection_status,
			credentials, sync_config, stats,
			last_sync_status, error_message,
			created_at, updated_at
		) VALUES (
			$1,
			COALESCE($2, ''),
			COALESCE($3, TRUE),
			COALESCE($4, 'disconnected'),
			COALESCE($5::jsonb, '{}'::jsonb),
			COALESCE($6::jsonb, $9::jsonb),
			'{}'::jsonb,
			COALESCE($7, ''),
			COALESCE($8, ''),
			$10, $10
		)
		ON CONFLICT (tms_type) DO UPDATE SET
			organization_name = COALESCE($2, tms_connections.organization_name),
			is_active         = COALESCE($3, tms_connections.is_active),
			connection_status = COALESCE($4, tms_connections.connection_status),
			credentials       = COALESCE($5::jsonb, tms_connections.credentials),
			sync_config       = COALESCE($6::jsonb, tms_connections.sync_config),
			last_sync_status  = COALESCE($7, tms_connections.last_sync_status),
			error_message     = COALESCE($8, tms_connections.error_message),
			updated_at        = $10
		RETURNING ` + connectionColumns

	var statusArg *string
	if patch.ConnectionStatus != nil {
		s := string(*patch.ConnectionStatus)
		statusArg = &s
	}
	var lastSyncStatusArg *string
	if patch.LastSyncStatus != nil {
		s := string(*patch.LastSyncStatus)
		lastSyncStatusArg = &s
	}

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query,
		tmsType,
		patch.OrganizationName,
		patch.IsActive,
		statusArg,
		credentialsJSON,
		syncConfigJSON,
		lastSyncStatusArg,
		patch.ErrorMessage,
		defaultConfig,
		time.Now(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connection %s: %w", tmsType, err)
	}
	return conn, nil
}

// RecordRunResult folds a finished run into the stored status and stats in
// one UPDATE so concurrent readers never observe a half-applied outcome.
func (r *ConnectionRepository) RecordRunResult(ctx context.Context, tmsType string, result models.RunResult) error {
	success := result.Status == models.SyncStatusSuccess

	query := `
		UPDATE tms_connections SET
			stats = jsonb_build_object(
				'total_syncs',        COALESCE((stats->>'total_syncs')::int, 0) + 1,
				'successful_syncs',   COALESCE((stats->>'successful_syncs')::int, 0) + CASE WHEN $2 THEN 1 ELSE 0 END,
				'failed_syncs',       COALESCE((stats->>'failed_syncs')::int, 0) + CASE WHEN $2 THEN 0 ELSE 1 END,
				'last_carrier_count', $3::int
			),
			connection_status = CASE WHEN $2 THEN 'connected' ELSE 'error' END,
			last_sync_at      = $4,
			last_sync_status  = $5,
			error_message     = $6,
			updated_at        = NOW()
		WHERE tms_type = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		tmsType, success, result.CarrierCount,
		result.FinishedAt, string(result.Status), result.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record run result for %s: %w", tmsType, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("connection not found: %s", tmsType)
	}
	return nil
}

// ListActive returns all connections with is_active=true.
func (r *ConnectionRepository) ListActive(ctx context.Context) ([]models.TMSConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM tms_connections
		WHERE is_active = TRUE
		ORDER BY tms_type
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active connections: %w", err)
	}
	defer rows.Close()

	var connections []models.TMSConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, *conn)
	}
	return connections, rows.Err()
}

// List returns every stored connection, active or not.
func (r *ConnectionRepository) List(ctx context.Context) ([]models.TMSConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM tms_connections
		ORDER BY tms_type
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var connections []models.TMSConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, *conn)
	}
	return connections, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*models.TMSConnection, error) {
	conn := &models.TMSConnection{}
	var credentialsJSON, syncConfigJSON, statsJSON []byte
	var lastSyncAt sql.NullTime
	var lastSyncStatus string

	err := row.Scan(
		&conn.TMSType,
		&conn.OrganizationName,
		&conn.IsActive,
		&conn.ConnectionStatus,
		&credentialsJSON,
		&syncConfigJSON,
		&statsJSON,
		&lastSyncAt,
		&lastSyncStatus,
		&conn.ErrorMessage,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(credentialsJSON, &conn.Credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if err := json.Unmarshal(syncConfigJSON, &conn.SyncConfig); err != nil {
		return nil, fmt.Errorf("failed to parse sync config: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &conn.Stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}

	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		conn.LastSyncAt = &t
	}
	conn.LastSyncStatus = models.SyncStatus(lastSyncStatus)

	return conn, nil
}
