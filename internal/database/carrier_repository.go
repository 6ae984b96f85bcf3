package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/symphonia/tms-sync/internal/models"
)

// CarrierRepository persists synchronized carriers in PostgreSQL. It
// implements carriersync.CarrierStore; rows are unique on
// (external_id, external_source).
type CarrierRepository struct {
	db *sql.DB
}

// NewCarrierRepository creates a new repository for carriers.
func NewCarrierRepository(db *sql.DB) *CarrierRepository {
	return &CarrierRepository{db: db}
}

const carrierColumns = `
	id, external_id, external_source, remote_id,
	name, legal_name, siret, vat_number,
	phone, email, website, country,
	address, contacts, is_verified, metadata,
	created_at, updated_at
`

// GetByExternalID retrieves a carrier by its provider identity, or nil when
// absent.
func (r *CarrierRepository) GetByExternalID(ctx context.Context, externalID, externalSource string) (*models.Carrier, error) {
	query := `
		SELECT ` + carrierColumns + `
		FROM carriers
		WHERE external_id = $1 AND external_source = $2
	`

	carrier, err := scanCarrier(r.db.QueryRowContext(ctx, query, externalID, externalSource))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get carrier %s/%s: %w", externalSource, externalID, err)
	}
	return carrier, nil
}

// Insert stores a new carrier.
func (r *CarrierRepository) Insert(ctx context.Context, carrier *models.Carrier) error {
	addressJSON, contactsJSON, err := marshalCarrierJSON(carrier)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO carriers (` + carrierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = r.db.ExecContext(ctx, query,
		carrier.ID, carrier.ExternalID, carrier.ExternalSource, carrier.RemoteID,
		carrier.Name, carrier.LegalName, carrier.SIRET, carrier.VATNumber,
		carrier.Phone, carrier.Email, carrier.Website, carrier.Country,
		addressJSON, contactsJSON, carrier.IsVerified, []byte(carrier.Metadata),
		carrier.CreatedAt, carrier.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert carrier %s/%s: %w", carrier.ExternalSource, carrier.ExternalID, err)
	}
	return nil
}

// Update overwrites the mapped fields of an existing carrier. The row is
// addressed by provider identity so a concurrent id change cannot detach it.
func (r *CarrierRepository) Update(ctx context.Context, carrier *models.Carrier) error {
	addressJSON, contactsJSON, err := marshalCarrierJSON(carrier)
	if err != nil {
		return err
	}

	query := `
		UPDATE carriers SET
			remote_id   = $3,
			name        = $4,
			legal_name  = $5,
			siret       = $6,
			vat_number  = $7,
			phone       = $8,
			email       = $9,
			website     = $10,
			country     = $11,
			address     = $12,
			contacts    = $13,
			is_verified = $14,
			metadata    = $15,
			updated_at  = $16
		WHERE external_id = $1 AND external_source = $2
	`

	res, err := r.db.ExecContext(ctx, query,
		carrier.ExternalID, carrier.ExternalSource, carrier.RemoteID,
		carrier.Name, carrier.LegalName, carrier.SIRET, carrier.VATNumber,
		carrier.Phone, carrier.Email, carrier.Website, carrier.Country,
		addressJSON, contactsJSON, carrier.IsVerified, []byte(carrier.Metadata),
		carrier.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update carrier %s/%s: %w", carrier.ExternalSource, carrier.ExternalID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("carrier not found: %s/%s", carrier.ExternalSource, carrier.ExternalID)
	}
	return nil
}

func marshalCarrierJSON(carrier *models.Carrier) (addressJSON, contactsJSON []byte, err error) {
	if carrier.Address != nil {
		if addressJSON, err = json.Marshal(carrier.Address); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal carrier address: %w", err)
		}
	}
	if carrier.Contacts != nil {
		if contactsJSON, err = json.Marshal(carrier.Contacts); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal carrier contacts: %w", err)
		}
	}
	return addressJSON, contactsJSON, nil
}

func scanCarrier(row rowScanner) (*models.Carrier, error) {
	carrier := &models.Carrier{}
	var addressJSON, contactsJSON, metadata []byte

	err := row.Scan(
		&carrier.ID, &carrier.ExternalID, &carrier.ExternalSource, &carrier.RemoteID,
		&carrier.Name, &carrier.LegalName, &carrier.SIRET, &carrier.VATNumber,
		&carrier.Phone, &carrier.Email, &carrier.Website, &carrier.Country,
		&addressJSON, &contactsJSON, &carrier.IsVerified, &metadata,
		&carrier.CreatedAt, &carrier.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(addressJSON) > 0 {
		carrier.Address = &models.Address{}
		if err := json.Unmarshal(addressJSON, carrier.Address); err != nil {
			return nil, fmt.Errorf("failed to parse carrier address: %w", err)
		}
	}
	if len(contactsJSON) > 0 {
		if err := json.Unmarshal(contactsJSON, &carrier.Contacts); err != nil {
			return nil, fmt.Errorf("failed to parse carrier contacts: %w", err)
		}
	}
	if len(metadata) > 0 {
		carrier.Metadata = json.RawMessage(metadata)
	}

	return carrier, nil
}
