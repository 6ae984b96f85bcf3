package carriersync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/symphonia/tms-sync/internal/models"
)

// ConnectionStore persists TMS connection configuration and run statistics.
type ConnectionStore interface {
	// Get retrieves the connection for a tmsType, or nil when absent.
	Get(ctx context.Context, tmsType string) (*models.TMSConnection, error)

	// Upsert applies a partial merge atomically: supplied patch fields
	// overwrite, omitted fields retain prior values, UpdatedAt is always
	// refreshed and CreatedAt is set only on first creation.
	Upsert(ctx context.Context, tmsType string, patch models.ConnectionPatch) (*models.TMSConnection, error)

	// RecordRunResult atomically folds a finished run into the connection's
	// status fields and lifetime counters.
	RecordRunResult(ctx context.Context, tmsType string, result models.RunResult) error

	// ListActive returns all connections with isActive=true.
	ListActive(ctx context.Context) ([]models.TMSConnection, error)

	// List returns every stored connection, active or not.
	List(ctx context.Context) ([]models.TMSConnection, error)
}

// CarrierStore persists synchronized carrier records.
type CarrierStore interface {
	// GetByExternalID retrieves a carrier by its provider identity, or nil
	// when absent.
	GetByExternalID(ctx context.Context, externalID, externalSource string) (*models.Carrier, error)

	// Insert stores a new carrier.
	Insert(ctx context.Context, carrier *models.Carrier) error

	// Update overwrites the mapped fields of an existing carrier.
	Update(ctx context.Context, carrier *models.Carrier) error
}

// RunStore persists sync run summaries.
type RunStore interface {
	// Save stores a finished run.
	Save(ctx context.Context, run *models.SyncRun) error

	// ListByType returns the most recent runs for a tmsType, newest first.
	ListByType(ctx context.Context, tmsType string, limit int) ([]models.SyncRun, error)
}

// MemoryConnectionStore is an in-memory ConnectionStore for tests and
// development.
type MemoryConnectionStore struct {
	mu          sync.Mutex
	connections map[string]models.TMSConnection
}

// NewMemoryConnectionStore creates an empty in-memory connection store.
func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{connections: make(map[string]models.TMSConnection)}
}

// Get retrieves a connection by tmsType.
func (s *MemoryConnectionStore) Get(ctx context.Context, tmsType string) (*models.TMSConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[tmsType]
	if !ok {
		return nil, nil
	}
	return &conn, nil
}

// Upsert merges the patch into the stored connection under the store lock.
func (s *MemoryConnectionStore) Upsert(ctx context.Context, tmsType string, patch models.ConnectionPatch) (*models.TMSConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	conn, ok := s.connections[tmsType]
	if !ok {
		conn = models.TMSConnection{
			TMSType:          tmsType,
			IsActive:         true,
			ConnectionStatus: models.ConnectionStatusDisconnected,
			SyncConfig:       models.DefaultSyncConfig(),
			CreatedAt:        now,
		}
	}

	patch.Apply(&conn, now)
	s.connections[tmsType] = conn
	return &conn, nil
}

// RecordRunResult folds a run outcome into the stored connection.
func (s *MemoryConnectionStore) RecordRunResult(ctx context.Context, tmsType string, result models.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[tmsType]
	if !ok {
		return nil
	}

	conn.Stats.TotalSyncs++
	if result.Status == models.SyncStatusSuccess {
		conn.Stats.SuccessfulSyncs++
		conn.ConnectionStatus = models.ConnectionStatusConnected
	} else {
		conn.Stats.FailedSyncs++
		conn.ConnectionStatus = models.ConnectionStatusError
	}
	conn.Stats.LastCarrierCount = result.CarrierCount
	conn.LastSyncAt = &result.FinishedAt
	conn.LastSyncStatus = result.Status
	conn.ErrorMessage = result.ErrorMessage
	conn.UpdatedAt = time.Now()

	s.connections[tmsType] = conn
	return nil
}

// ListActive returns active connections.
func (s *MemoryConnectionStore) ListActive(ctx context.Context) ([]models.TMSConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []models.TMSConnection
	for _, conn := range s.connections {
		if conn.IsActive {
			active = append(active, conn)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].TMSType < active[j].TMSType })
	return active, nil
}

// List returns every stored connection.
func (s *MemoryConnectionStore) List(ctx context.Context) ([]models.TMSConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.TMSConnection, 0, len(s.connections))
	for _, conn := range s.connections {
		all = append(all, conn)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TMSType < all[j].TMSType })
	return all, nil
}

// carrierKey identifies a carrier by its provider identity.
type carrierKey struct {
	externalID     string
	externalSource string
}

// MemoryCarrierStore is an in-memory CarrierStore for tests and development.
type MemoryCarrierStore struct {
	mu       sync.Mutex
	carriers map[carrierKey]models.Carrier

	// FailExternalIDs makes Insert/Update fail for the listed external ids,
	// for exercising partial-failure behavior in tests.
	FailExternalIDs map[string]error
}

// NewMemoryCarrierStore creates an empty in-memory carrier store.
func NewMemoryCarrierStore() *MemoryCarrierStore {
	return &MemoryCarrierStore{
		carriers:        make(map[carrierKey]models.Carrier),
		FailExternalIDs: make(map[string]error),
	}
}

// GetByExternalID retrieves a carrier by provider identity.
func (s *MemoryCarrierStore) GetByExternalID(ctx context.Context, externalID, externalSource string) (*models.Carrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	carrier, ok := s.carriers[carrierKey{externalID, externalSource}]
	if !ok {
		return nil, nil
	}
	return &carrier, nil
}

// Insert stores a new carrier.
func (s *MemoryCarrierStore) Insert(ctx context.Context, carrier *models.Carrier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailExternalIDs[carrier.ExternalID]; err != nil {
		return err
	}
	s.carriers[carrierKey{carrier.ExternalID, carrier.ExternalSource}] = *carrier
	return nil
}

// Update overwrites an existing carrier.
func (s *MemoryCarrierStore) Update(ctx context.Context, carrier *models.Carrier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailExternalIDs[carrier.ExternalID]; err != nil {
		return err
	}
	s.carriers[carrierKey{carrier.ExternalID, carrier.ExternalSource}] = *carrier
	return nil
}

// Size returns the number of stored carriers.
func (s *MemoryCarrierStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carriers)
}

// MemoryRunStore is an in-memory RunStore for tests and development.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs []models.SyncRun
}

// NewMemoryRunStore creates an empty in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{}
}

// Save appends a run.
func (s *MemoryRunStore) Save(ctx context.Context, run *models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

// ListByType returns runs for a tmsType, newest first.
func (s *MemoryRunStore) ListByType(ctx context.Context, tmsType string, limit int) ([]models.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.SyncRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].TMSType != tmsType {
			continue
		}
		matched = append(matched, s.runs[i])
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// Size returns the number of stored runs.
func (s *MemoryRunStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
