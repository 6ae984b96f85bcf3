package tms

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/symphonia/tms-sync/internal/models"
)

// CompanyID is the provider's primary key. Some provider versions
// serialize it as a JSON string, so decoding accepts both forms.
type CompanyID int64

func (id *CompanyID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid company pk %q: %w", s, err)
	}
	*id = CompanyID(n)
	return nil
}

// Company is a raw company record from the provider's listing endpoint.
// Raw keeps the undecoded payload so fields outside the mapped schema pass
// through to the store untouched.
type Company struct {
	PK             CompanyID        `json:"pk"`
	RemoteID       string           `json:"remote_id"`
	Name           string           `json:"name"`
	TradeNumber    string           `json:"trade_number"`
	VATNumber      string           `json:"vat_number"`
	PhoneNumber    string           `json:"phone_number"`
	Email          string           `json:"email"`
	Website        string           `json:"website"`
	Country        string           `json:"country"`
	IsVerified     bool             `json:"is_verified"`
	PrimaryAddress *CompanyAddress  `json:"primary_address"`
	Contacts       []CompanyContact `json:"contacts"`

	Raw json.RawMessage `json:"-"`
}

// CompanyAddress is the provider's address shape.
type CompanyAddress struct {
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Postcode  string   `json:"postcode"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CompanyContact is the provider's contact shape.
type CompanyContact struct {
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	Jobs        []string `json:"jobs"`
}

// ExternalID returns the provider's stable identifier for the company.
func (c Company) ExternalID() string {
	return strconv.FormatInt(int64(c.PK), 10)
}

// MapCompany maps a provider company into the local carrier schema.
// The carrier ID is assigned at insert time by the reconciler.
func MapCompany(c Company, externalSource string) models.Carrier {
	carrier := models.Carrier{
		ID:             uuid.NewString(),
		ExternalID:     c.ExternalID(),
		ExternalSource: externalSource,
		RemoteID:       c.RemoteID,
		Name:           c.Name,
		LegalName:      c.Name,
		SIRET:          c.TradeNumber,
		VATNumber:      c.VATNumber,
		Phone:          c.PhoneNumber,
		Email:          c.Email,
		Website:        c.Website,
		Country:        c.Country,
		IsVerified:     c.IsVerified,
		Metadata:       c.Raw,
	}

	if c.PrimaryAddress != nil {
		carrier.Address = &models.Address{
			Street:     c.PrimaryAddress.Address,
			City:       c.PrimaryAddress.City,
			PostalCode: c.PrimaryAddress.Postcode,
			Country:    c.PrimaryAddress.Country,
			Latitude:   c.PrimaryAddress.Latitude,
			Longitude:  c.PrimaryAddress.Longitude,
		}
	}

	for _, contact := range c.Contacts {
		name := strings.TrimSpace(contact.FirstName + " " + contact.LastName)
		role := "contact"
		if len(contact.Jobs) > 0 {
			role = contact.Jobs[0]
		}
		carrier.Contacts = append(carrier.Contacts, models.CarrierContact{
			Name:  name,
			Email: contact.Email,
			Phone: contact.PhoneNumber,
			Role:  role,
		})
	}

	return carrier
}
