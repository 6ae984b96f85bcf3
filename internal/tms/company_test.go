package tms

import (
	"encoding/json"
	"testing"
)

func TestMapCompany(t *testing.T) {
	lat, lng := 48.8566, 2.3522
	raw := json.RawMessage(`{"pk": 4521, "name": "Transports Leclerc", "account_type": "subscribed"}`)

	company := Company{
		PK:          4521,
		RemoteID:    "T4521",
		Name:        "Transports Leclerc",
		TradeNumber: "53264587800019",
		VATNumber:   "FR53264587800",
		PhoneNumber: "+33 1 23 45 67 89",
		Email:       "contact@leclerc-transports.fr",
		Website:     "https://leclerc-transports.fr",
		Country:     "FR",
		IsVerified:  true,
		PrimaryAddress: &CompanyAddress{
			Address:   "12 rue de la Gare",
			City:      "Paris",
			Postcode:  "75010",
			Country:   "France",
			Latitude:  &lat,
			Longitude: &lng,
		},
		Contacts: []CompanyContact{
			{FirstName: "Marie", LastName: "Leclerc", Email: "marie@leclerc-transports.fr", Jobs: []string{"director"}},
			{FirstName: "", LastName: "Dupont", PhoneNumber: "+33 6 00 00 00 00"},
		},
		Raw: raw,
	}

	carrier := MapCompany(company, "dashdoc")

	if carrier.ExternalID != "4521" {
		t.Errorf("expected external id 4521, got %s", carrier.ExternalID)
	}
	if carrier.ExternalSource != "dashdoc" {
		t.Errorf("expected external source dashdoc, got %s", carrier.ExternalSource)
	}
	if carrier.ID == "" {
		t.Error("expected a generated carrier id")
	}
	if carrier.Name != "Transports Leclerc" || carrier.LegalName != "Transports Leclerc" {
		t.Errorf("unexpected name mapping: %q / %q", carrier.Name, carrier.LegalName)
	}
	if carrier.SIRET != "53264587800019" {
		t.Errorf("expected trade number mapped to SIRET, got %s", carrier.SIRET)
	}

	if carrier.Address == nil {
		t.Fatal("expected mapped address")
	}
	if carrier.Address.City != "Paris" || carrier.Address.PostalCode != "75010" {
		t.Errorf("unexpected address: %+v", carrier.Address)
	}
	if carrier.Address.Latitude == nil || *carrier.Address.Latitude != lat {
		t.Error("expected latitude to be carried over")
	}

	if len(carrier.Contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(carrier.Contacts))
	}
	if carrier.Contacts[0].Name != "Marie Leclerc" || carrier.Contacts[0].Role != "director" {
		t.Errorf("unexpected first contact: %+v", carrier.Contacts[0])
	}
	if carrier.Contacts[1].Name != "Dupont" {
		t.Errorf("expected trimmed single-part name, got %q", carrier.Contacts[1].Name)
	}
	if carrier.Contacts[1].Role != "contact" {
		t.Errorf("expected default role contact, got %q", carrier.Contacts[1].Role)
	}

	if string(carrier.Metadata) != string(raw) {
		t.Error("expected raw payload passed through as metadata")
	}
}

func TestMapCompany_Minimal(t *testing.T) {
	carrier := MapCompany(Company{PK: 9, Name: "Bare"}, "dashdoc")

	if carrier.Address != nil {
		t.Error("expected nil address when provider sends none")
	}
	if len(carrier.Contacts) != 0 {
		t.Error("expected no contacts")
	}
	if carrier.ExternalID != "9" {
		t.Errorf("expected external id 9, got %s", carrier.ExternalID)
	}
}

func TestCompanyIDDecodesStringAndNumber(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"number pk", `{"pk": 4521, "name": "A"}`, "4521", false},
		{"string pk", `{"pk": "4521", "name": "A"}`, "4521", false},
		{"null pk", `{"pk": null, "name": "A"}`, "0", false},
		{"empty string pk", `{"pk": "", "name": "A"}`, "0", false},
		{"non-numeric pk", `{"pk": "abc", "name": "A"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var company Company
			err := json.Unmarshal([]byte(tt.payload), &company)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := company.ExternalID(); got != tt.want {
				t.Errorf("ExternalID() = %q, want %q", got, tt.want)
			}
		})
	}
}
