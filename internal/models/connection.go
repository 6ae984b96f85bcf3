package models

import "time"

// ConnectionStatus represents the health of a TMS connection.
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusError        ConnectionStatus = "error"
)

// SyncStatus describes the outcome of the most recent sync run.
type SyncStatus string

const (
	SyncStatusSuccess   SyncStatus = "success"
	SyncStatusError     SyncStatus = "error"
	SyncStatusAuthError SyncStatus = "auth_error" // auto-sync suspended until credentials change
)

// Credentials holds the provider API credentials for a connection.
// APITokenRef, when set, takes precedence over APIToken and is resolved
// through the secrets resolver at call time.
type Credentials struct {
	APIToken    string `json:"api_token,omitempty"`
	APITokenRef string `json:"api_token_ref,omitempty"`
	APIURL      string `json:"api_url"`
}

// SyncConfig controls how much data a sync run pulls from the provider.
// A limit of 0 means unbounded.
type SyncConfig struct {
	AutoSync       bool `json:"auto_sync"`
	SyncInterval   int  `json:"sync_interval"` // minutes between automatic runs
	TransportLimit int  `json:"transport_limit"`
	CompanyLimit   int  `json:"company_limit"`
	ContactLimit   int  `json:"contact_limit"`
	MaxPages       int  `json:"max_pages"`
}

// Default sync configuration values, matching provider-side expectations.
const (
	DefaultSyncInterval = 30
	DefaultMaxPages     = 100
	DefaultPageSize     = 100
)

// DefaultSyncConfig returns the configuration applied when a connection is
// first created without explicit sync settings.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		AutoSync:     true,
		SyncInterval: DefaultSyncInterval,
		MaxPages:     DefaultMaxPages,
	}
}

// ConnectionStats accumulates run counters across the lifetime of a connection.
type ConnectionStats struct {
	TotalSyncs       int `json:"total_syncs"`
	SuccessfulSyncs  int `json:"successful_syncs"`
	FailedSyncs      int `json:"failed_syncs"`
	LastCarrierCount int `json:"last_carrier_count"`
}

// TMSConnection is the stored configuration of one external TMS integration.
// Exactly one connection exists per TMSType; lookups key on TMSType.
type TMSConnection struct {
	TMSType          string           `json:"tms_type"`
	OrganizationName string           `json:"organization_name"`
	IsActive         bool             `json:"is_active"`
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	Credentials      Credentials      `json:"credentials"`
	SyncConfig       SyncConfig       `json:"sync_config"`
	Stats            ConnectionStats  `json:"stats"`
	LastSyncAt       *time.Time       `json:"last_sync_at,omitempty"`
	LastSyncStatus   SyncStatus       `json:"last_sync_status,omitempty"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ConnectionPatch is a partial update to a connection. Nil fields retain
// their stored values; supplied fields overwrite. UpdatedAt is refreshed on
// every application regardless of which fields are set.
type ConnectionPatch struct {
	OrganizationName *string
	IsActive         *bool
	ConnectionStatus *ConnectionStatus
	Credentials      *Credentials
	SyncConfig       *SyncConfig
	LastSyncStatus   *SyncStatus
	ErrorMessage     *string
}

// Apply merges the patch into a connection in place.
func (p ConnectionPatch) Apply(c *TMSConnection, now time.Time) {
	if p.OrganizationName != nil {
		c.OrganizationName = *p.OrganizationName
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.ConnectionStatus != nil {
		c.ConnectionStatus = *p.ConnectionStatus
	}
	if p.Credentials != nil {
		c.Credentials = *p.Credentials
	}
	if p.SyncConfig != nil {
		c.SyncConfig = *p.SyncConfig
	}
	if p.LastSyncStatus != nil {
		c.LastSyncStatus = *p.LastSyncStatus
	}
	if p.ErrorMessage != nil {
		c.ErrorMessage = *p.ErrorMessage
	}
	c.UpdatedAt = now
}

// RunResult captures the connection-level outcome of a finished sync run,
// applied atomically to the stored stats and status fields.
type RunResult struct {
	Status       SyncStatus
	CarrierCount int
	ErrorMessage string
	FinishedAt   time.Time
}
