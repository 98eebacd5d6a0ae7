package registry

import (
	"fmt"
	"sort"

	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/pkg/shape"
	"github.com/cyclus/dbtypes/pkg/types"
)

// TypeSystem is the per-version type enumeration consumed by code
// generators. Ids and names are backend independent within a version, so
// the view is built from the union of all backend tables.
type TypeSystem struct {
	version types.Version
	types   []string
	unique  []string
	ids     map[string]int
	ranks   map[string]int
	natives map[string]string
	norms   map[string]*shape.Template
}

// TypeSystem returns the enumeration for version v.
func (r *Registry) TypeSystem(v types.Version) (*TypeSystem, error) {
	if !r.HasVersion(v) {
		return nil, rerrors.NewNotFoundError(fmt.Sprintf("no types defined at %s", v)).
			WithDetails(map[string]interface{}{"version": v.String()})
	}

	byID := make(map[int]types.TypeRecord)
	var ids []int
	for _, rec := range r.records {
		if rec.Version != v {
			continue
		}
		if _, ok := byID[rec.ID]; !ok {
			byID[rec.ID] = rec
			ids = append(ids, rec.ID)
		}
	}
	sort.Ints(ids)

	ts := &TypeSystem{
		version: v,
		ids:     make(map[string]int, len(byID)),
		ranks:   make(map[string]int, len(byID)),
		natives: make(map[string]string, len(byID)),
		norms:   make(map[string]*shape.Template, len(byID)),
	}
	var seen []*shape.Template
	for _, id := range ids {
		rec := byID[id]
		ts.types = append(ts.types, rec.Name)
		ts.ids[rec.Name] = rec.ID
		ts.ranks[rec.Name] = rec.ShapeRank
		ts.natives[rec.Name] = rec.NativeRepr

		norm, err := shape.ParseTemplate(rec.NativeRepr)
		if err != nil {
			// unparsable spellings still get a distinct, opaque normal form
			norm = &shape.Template{Name: rec.NativeRepr}
		}
		ts.norms[rec.Name] = norm

		dup := false
		for _, s := range seen {
			if s.Equal(norm) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, norm)
			ts.unique = append(ts.unique, rec.Name)
		}
	}
	return ts, nil
}

// Version returns the schema version the view describes.
func (ts *TypeSystem) Version() types.Version { return ts.version }

// Types returns every type name ordered by id.
func (ts *TypeSystem) Types() []string {
	return append([]string(nil), ts.types...)
}

// UniqueTypes returns, for each distinct native type, the lowest-id name
// spelling it. Variable-length names collapse onto their fixed-length twin.
func (ts *TypeSystem) UniqueTypes() []string {
	return append([]string(nil), ts.unique...)
}

// ID returns the id of a type name.
func (ts *TypeSystem) ID(name string) (int, bool) {
	id, ok := ts.ids[name]
	return id, ok
}

// Rank returns the shape rank of a type name.
func (ts *TypeSystem) Rank(name string) (int, bool) {
	rank, ok := ts.ranks[name]
	return rank, ok
}

// NativeRepr returns the declared native spelling of a type name.
func (ts *TypeSystem) NativeRepr(name string) (string, bool) {
	n, ok := ts.natives[name]
	return n, ok
}

// Norm returns the normalized native form of a type name.
func (ts *TypeSystem) Norm(name string) (*shape.Template, bool) {
	t, ok := ts.norms[name]
	return t, ok
}
