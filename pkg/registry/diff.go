package registry

import "github.com/cyclus/dbtypes/pkg/types"

// VersionDiff describes how one backend's table changed between two
// schema versions. Each list holds type ids in ascending order.
type VersionDiff struct {
	Backend           types.Backend `json:"backend"`
	From              types.Version `json:"from"`
	To                types.Version `json:"to"`
	Added             []int         `json:"added"`
	Removed           []int         `json:"removed"`
	NewlySupported    []int         `json:"newly_supported"`
	NoLongerSupported []int         `json:"no_longer_supported"`
}

// Empty reports whether the two tables are identical.
func (d VersionDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 &&
		len(d.NewlySupported) == 0 && len(d.NoLongerSupported) == 0
}

// Diff compares the backend's tables at from and to. An id added in to and
// already supported there counts as added only.
func (r *Registry) Diff(backend types.Backend, from, to types.Version) VersionDiff {
	d := VersionDiff{Backend: backend, From: from, To: to}

	old := make(map[int]bool)
	for _, i := range r.tables[tableKey{backend, from}] {
		old[r.records[i].ID] = r.records[i].Supported
	}

	present := make(map[int]bool)
	for _, i := range r.tables[tableKey{backend, to}] {
		rec := r.records[i]
		present[rec.ID] = true
		was, ok := old[rec.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, rec.ID)
		case !was && rec.Supported:
			d.NewlySupported = append(d.NewlySupported, rec.ID)
		case was && !rec.Supported:
			d.NoLongerSupported = append(d.NoLongerSupported, rec.ID)
		}
	}
	for _, i := range r.tables[tableKey{backend, from}] {
		if id := r.records[i].ID; !present[id] {
			d.Removed = append(d.Removed, id)
		}
	}
	return d
}
