package carriersync

import (
	"testing"

	"github.com/symphonia/tms-sync/internal/tms"
)

func TestClientIDClassifier_Accept(t *testing.T) {
	classifier := NewClientIDClassifier()

	tests := []struct {
		remoteID string
		accept   bool
	}{
		{"C123", false},
		{"C4", false},
		{"C0", false},
		{"C99999999", false},
		{"T9981", true},
		{"CARRIER-1", true},
		{"", true},        // fail-open: missing identifier
		{"C", true},       // prefix alone is not a client id
		{"C12X", true},    // trailing letter breaks the pattern
		{"XC123", true},   // anchored at the start
		{"C123 ", true},   // anchored at the end
		{"c123", true},    // pattern is case-sensitive
		{"123", true},
		{"Châlons", true}, // non-ASCII after prefix
	}

	for _, tt := range tests {
		t.Run(tt.remoteID, func(t *testing.T) {
			got := classifier.Accept(tms.Company{RemoteID: tt.remoteID})
			if got != tt.accept {
				t.Errorf("Accept(%q) = %v, want %v", tt.remoteID, got, tt.accept)
			}
		})
	}
}
