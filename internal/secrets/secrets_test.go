package secrets

import (
	"testing"
)

func TestEnvResolver_Resolve(t *testing.T) {
	t.Setenv("TMS_TEST_TOKEN", "tok-123")

	resolver := NewEnvResolver()

	value, err := resolver.Resolve("env://TMS_TEST_TOKEN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "tok-123" {
		t.Errorf("expected tok-123, got %s", value)
	}
}

func TestEnvResolver_Errors(t *testing.T) {
	resolver := NewEnvResolver()

	tests := []struct {
		name string
		ref  string
	}{
		{"unsupported scheme", "vault://some/path"},
		{"empty reference", "env://"},
		{"unset variable", "env://TMS_DEFINITELY_NOT_SET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolver.Resolve(tt.ref); err == nil {
				t.Errorf("expected error for ref %q", tt.ref)
			}
		})
	}
}

func TestMemoryResolver(t *testing.T) {
	resolver := NewMemoryResolver()
	resolver.Store("env://API_TOKEN", "secret-value")

	value, err := resolver.Resolve("env://API_TOKEN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "secret-value" {
		t.Errorf("expected secret-value, got %s", value)
	}

	if _, err := resolver.Resolve("env://MISSING"); err == nil {
		t.Error("expected error for unknown reference")
	}
}
