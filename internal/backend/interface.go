// Package backend builds the record store selected by configuration.
package backend

import (
	"context"

	"hostel/internal/store"
)

// BackendType names a store implementation.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (t BackendType) String() string { return string(t) }

// IsValid reports whether t is a supported backend.
func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend:
		return true
	}
	return false
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result is a ready-to-use store plus its lifecycle hooks.
type Result struct {
	Store store.Store
	// Ready reports whether the store can serve requests.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config selects and configures a backend.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	// SeedFile optionally preloads the memory backend from a JSON snapshot.
	SeedFile string
}
