package types

import (
	"fmt"
	"strings"
)

// Backend identifies the storage engine a type record's support flag applies to.
type Backend string

const (
	// BackendSQLite is the relational file-based store.
	BackendSQLite Backend = "SQLite"

	// BackendHDF5 is the hierarchical binary data store.
	BackendHDF5 Backend = "HDF5"
)

// Backends lists every known backend in canonical order.
func Backends() []Backend {
	return []Backend{BackendSQLite, BackendHDF5}
}

// ParseBackend resolves a backend name case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite":
		return BackendSQLite, nil
	case "hdf5":
		return BackendHDF5, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// String returns the canonical spelling.
func (b Backend) String() string {
	return string(b)
}

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	return b == BackendSQLite || b == BackendHDF5
}
