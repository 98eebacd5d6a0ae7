// Package types provides the core value types of the type registry.
package types

import (
	"fmt"
	"regexp"
)

var namePattern = regexp.MustCompile(`^[A-Z_]+$`)

// TypeRecord describes one persistable type for one backend at one schema version.
type TypeRecord struct {
	// ID is the type identifier; unique only together with Backend and Version
	ID int `json:"id"`

	// Name is the canonical symbolic name (e.g. "VL_VECTOR_DOUBLE")
	Name string `json:"name"`

	// NativeRepr is the host simulation's native type spelling; opaque here
	NativeRepr string `json:"native_repr"`

	// ShapeRank is the nesting depth of the container shape (0 = scalar)
	ShapeRank int `json:"shape_rank"`

	// Backend is the storage engine the Supported flag applies to
	Backend Backend `json:"backend"`

	// Version is the schema version this record describes
	Version Version `json:"version"`

	// Supported indicates whether the backend implements persistence for this type
	Supported bool `json:"supported"`
}

// Key identifies a record.
type Key struct {
	ID      int
	Backend Backend
	Version Version
}

// String renders the key as "HDF5/v1.1/1".
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Backend, k.Version, k.ID)
}

// Key returns the record's identity.
func (r TypeRecord) Key() Key {
	return Key{ID: r.ID, Backend: r.Backend, Version: r.Version}
}

// VariableLength reports whether the name carries the VL_ prefix.
func (r TypeRecord) VariableLength() bool {
	return len(r.Name) > 3 && r.Name[:3] == "VL_"
}

// Validate checks the field-level invariants of a single record.
func (r TypeRecord) Validate() error {
	if r.ID < 0 {
		return fmt.Errorf("id must be non-negative, got %d", r.ID)
	}
	if !namePattern.MatchString(r.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, r.Name)
	}
	if r.ShapeRank < 0 {
		return fmt.Errorf("shape rank must be non-negative, got %d", r.ShapeRank)
	}
	if !r.Backend.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, r.Backend)
	}
	if r.Version.IsZero() {
		return fmt.Errorf("%w: missing", ErrInvalidVersion)
	}
	return nil
}

// Less orders records canonically: version, then backend, then id.
func Less(a, b TypeRecord) bool {
	if c := a.Version.Compare(b.Version); c != 0 {
		return c < 0
	}
	if a.Backend != b.Backend {
		return backendOrder(a.Backend) < backendOrder(b.Backend)
	}
	return a.ID < b.ID
}

func backendOrder(b Backend) int {
	for i, known := range Backends() {
		if b == known {
			return i
		}
	}
	return len(Backends())
}
