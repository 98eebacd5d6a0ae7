package registry

import (
	rerrors "github.com/cyclus/dbtypes/internal/errors"
)

// Error classes returned by the registry. Match with errors.Is.
var (
	// ErrLoad matches every failure to build a registry from a source.
	// A load failure is fatal: no registry is returned.
	ErrLoad = rerrors.Sentinel(rerrors.ErrCategoryLoad)

	// ErrNotFound matches lookups of a (type id, backend, version)
	// combination the registry does not define.
	ErrNotFound = rerrors.Sentinel(rerrors.ErrCategoryLookup)
)
