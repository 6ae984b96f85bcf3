package carriersync

import (
	"regexp"

	"github.com/symphonia/tms-sync/internal/tms"
)

// Classifier decides whether a raw provider record belongs in the carrier
// store. Implementations must be pure so alternate providers can swap in a
// different predicate without touching the orchestrator.
type Classifier interface {
	Accept(company tms.Company) bool
}

// clientIDPattern matches the provider's shipper/client identifier
// convention: a literal C followed by digits, nothing else.
var clientIDPattern = regexp.MustCompile(`^C\d+$`)

// ClientIDClassifier rejects records whose remote identifier follows the
// client naming convention. These are shipper records that leak into the
// carrier listing. Records with a missing or unconventional identifier are
// accepted, so legitimate carriers without the prefix are never dropped.
type ClientIDClassifier struct{}

// NewClientIDClassifier creates the default classifier.
func NewClientIDClassifier() *ClientIDClassifier {
	return &ClientIDClassifier{}
}

// Accept returns false only for identifiers matching the client pattern.
func (f *ClientIDClassifier) Accept(company tms.Company) bool {
	return !clientIDPattern.MatchString(company.RemoteID)
}
