package backend

import (
	"context"

	"comptes/internal/annotations"
	"comptes/internal/categories"
	"comptes/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result bundles the stores a backend provides. Archive and Publisher are
// nil when the backend does not support them.
type Result struct {
	Annotations annotations.Store
	Overrides   categories.Overrides
	Archive     services.BatchArchive
	Publisher   services.BatchPublisher
	Cleanup     CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Type represents the type of backend
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
