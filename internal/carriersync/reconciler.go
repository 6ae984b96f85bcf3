package carriersync

import (
	"context"
	"time"

	"github.com/symphonia/tms-sync/internal/models"
)

// Outcome is the result of reconciling one record.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Reconciler applies the create-or-update decision for incoming carrier
// records, keyed by (externalId, externalSource).
type Reconciler struct {
	store CarrierStore
}

// NewReconciler creates a reconciler over the given carrier store.
func NewReconciler(store CarrierStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile inserts the carrier when its provider identity is unknown, and
// otherwise overwrites the mapped fields of the stored record. Re-running
// with identical input yields the same stored state and an updated outcome,
// never a duplicate insert. Failures surface as ReconcileError with the
// record's external id.
func (r *Reconciler) Reconcile(ctx context.Context, incoming models.Carrier) (Outcome, error) {
	existing, err := r.store.GetByExternalID(ctx, incoming.ExternalID, incoming.ExternalSource)
	if err != nil {
		return "", &ReconcileError{ExternalID: incoming.ExternalID, Err: err}
	}

	now := time.Now()

	if existing == nil {
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		if err := r.store.Insert(ctx, &incoming); err != nil {
			return "", &ReconcileError{ExternalID: incoming.ExternalID, Err: err}
		}
		return OutcomeCreated, nil
	}

	merged := mergeCarrier(*existing, incoming)
	merged.UpdatedAt = now
	if err := r.store.Update(ctx, &merged); err != nil {
		return "", &ReconcileError{ExternalID: incoming.ExternalID, Err: err}
	}
	return OutcomeUpdated, nil
}

// mergeCarrier overwrites the provider-mapped fields of the stored record
// with the incoming values. Identity, local id and creation time are kept;
// fields outside the provider mapping are left untouched.
func mergeCarrier(existing, incoming models.Carrier) models.Carrier {
	merged := existing
	merged.RemoteID = incoming.RemoteID
	merged.Name = incoming.Name
	merged.LegalName = incoming.LegalName
	merged.SIRET = incoming.SIRET
	merged.VATNumber = incoming.VATNumber
	merged.Phone = incoming.Phone
	merged.Email = incoming.Email
	merged.Website = incoming.Website
	merged.Country = incoming.Country
	merged.Address = incoming.Address
	merged.Contacts = incoming.Contacts
	merged.IsVerified = incoming.IsVerified
	merged.Metadata = incoming.Metadata
	return merged
}
