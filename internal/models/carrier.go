package models

import (
	"encoding/json"
	"time"
)

// Address is a carrier's primary postal address.
type Address struct {
	Street     string   `json:"street,omitempty"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// CarrierContact is a named contact at a carrier company.
type CarrierContact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Carrier is a transport company synchronized from an external TMS.
// (ExternalID, ExternalSource) is unique; the sync connector owns creation
// and update of rows for its source and never deletes them.
type Carrier struct {
	ID             string           `json:"id"`
	ExternalID     string           `json:"external_id"`
	ExternalSource string           `json:"external_source"`
	RemoteID       string           `json:"remote_id,omitempty"`
	Name           string           `json:"name"`
	LegalName      string           `json:"legal_name,omitempty"`
	SIRET          string           `json:"siret,omitempty"`
	VATNumber      string           `json:"vat_number,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Email          string           `json:"email,omitempty"`
	Website        string           `json:"website,omitempty"`
	Country        string           `json:"country,omitempty"`
	Address        *Address         `json:"address,omitempty"`
	Contacts       []CarrierContact `json:"contacts,omitempty"`
	IsVerified     bool             `json:"is_verified"`

	// Metadata carries the raw provider payload untouched, for fields the
	// local schema does not model.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
