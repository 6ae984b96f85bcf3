package secrets

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Resolver turns a secret reference stored on a connection into the secret
// value at call time. The store never holds the resolved value, only the
// reference.
type Resolver interface {
	// Resolve returns the secret value for the given reference.
	Resolve(ref string) (string, error)
}

// EnvResolver resolves references of the form "env://VAR_NAME" from the
// process environment.
type EnvResolver struct{}

// NewEnvResolver creates an environment-backed resolver.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

const envScheme = "env://"

// Resolve looks up the referenced environment variable.
func (r *EnvResolver) Resolve(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, envScheme)
	if !ok {
		return "", fmt.Errorf("unsupported secret reference: %s", ref)
	}
	if name == "" {
		return "", fmt.Errorf("empty secret reference")
	}

	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("secret %s is not set", name)
	}
	return value, nil
}

// MemoryResolver is an in-memory resolver for tests and development.
type MemoryResolver struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryResolver creates an empty in-memory resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{secrets: make(map[string]string)}
}

// Store registers a secret under the given reference.
func (r *MemoryResolver) Store(ref, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets[ref] = value
}

// Resolve returns the stored secret for the reference.
func (r *MemoryResolver) Resolve(ref string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.secrets[ref]
	if !ok {
		return "", fmt.Errorf("secret reference not found: %s", ref)
	}
	return value, nil
}
