package types

import "errors"

// Record field errors
var (
	// ErrUnknownBackend is returned when a backend name is not one of the known storage engines
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrInvalidVersion is returned when a schema version label is not of the form vMAJOR.MINOR
	ErrInvalidVersion = errors.New("invalid schema version")

	// ErrInvalidName is returned when a type name does not match the canonical name alphabet
	ErrInvalidName = errors.New("invalid type name")
)
