// Package registry holds the canonical set of persistable type records and
// answers which types a storage backend supports at a given schema version.
//
// A Registry is immutable once built. It may be shared by any number of
// goroutines without synchronization.
package registry

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"go.uber.org/zap"

	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/internal/logging"
	"github.com/cyclus/dbtypes/pkg/table"
	"github.com/cyclus/dbtypes/pkg/types"
)

// Source yields a definition table.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Table reads and decodes the definition table.
	Table(ctx context.Context) (*table.Table, error)
}

// Option configures Load.
type Option func(*options)

// StatsRecorder receives one call per query answered by a registry.
// table is "backend/version"; key identifies the queried type.
type StatsRecorder interface {
	Record(table, key string, hit bool)
}

type options struct {
	logger *zap.Logger
	stats  StatsRecorder
	strict bool
}

// WithLogger sets the logger used while loading.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStats attaches lookup statistics to the built registry.
func WithStats(s StatsRecorder) Option {
	return func(o *options) { o.stats = s }
}

// WithStrict turns lint findings into load failures.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

type tableKey struct {
	backend types.Backend
	version types.Version
}

func (k tableKey) String() string {
	return k.backend.String() + "/" + k.version.String()
}

type nameKey struct {
	name    string
	backend types.Backend
	version types.Version
}

// Registry is an immutable index over type records.
type Registry struct {
	records     []types.TypeRecord
	byKey       map[types.Key]int
	byName      map[nameKey]int
	tables      map[tableKey][]int
	versions    []types.Version
	backends    []types.Backend
	fingerprint string
	stats       StatsRecorder
}

// Load reads the definition table from src and builds a registry.
// Any failure matches ErrLoad and no registry is returned.
func Load(ctx context.Context, src Source, opts ...Option) (*Registry, error) {
	tbl, err := src.Table(ctx)
	if err != nil {
		return nil, rerrors.WrapLoadError(rerrors.CodeSourceFailed,
			fmt.Sprintf("failed to read table from %s", src.Name()), err)
	}
	reg, err := FromTable(tbl, opts...)
	if err != nil {
		return nil, err
	}

	o := collect(opts)
	o.logger.Info("type registry loaded",
		zap.String("source", src.Name()),
		zap.Int("records", reg.Len()),
		zap.Int("versions", len(reg.versions)),
		zap.String("fingerprint", reg.fingerprint))
	return reg, nil
}

// FromTable builds a registry from an already decoded table.
func FromTable(tbl *table.Table, opts ...Option) (*Registry, error) {
	recs, err := decodeTable(tbl)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs, opts...)
}

// FromRecords builds a registry from records. Input order does not matter.
func FromRecords(recs []types.TypeRecord, opts ...Option) (*Registry, error) {
	o := collect(opts)

	if len(recs) == 0 {
		return nil, rerrors.NewLoadError(rerrors.CodeEmptyTable, "definition table has no records")
	}
	for i, r := range recs {
		if err := r.Validate(); err != nil {
			return nil, rerrors.WrapLoadError(rerrors.CodeInvalidField,
				fmt.Sprintf("record %d (%s)", i, r.Key()), err)
		}
	}

	unique, err := dedupe(recs, o.logger)
	if err != nil {
		return nil, err
	}
	if err := checkConsistency(unique); err != nil {
		return nil, err
	}

	findings := lintRecords(unique)
	for _, f := range findings {
		o.logger.Warn("type definition lint", zap.String("finding", f.String()))
	}
	if o.strict && len(findings) > 0 {
		return nil, rerrors.NewLoadError(rerrors.CodeLintFailed,
			fmt.Sprintf("%d lint findings, first: %s", len(findings), findings[0])).
			WithDetails(map[string]interface{}{"findings": len(findings)})
	}

	return build(unique, o.stats), nil
}

func collect(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrNop(o.logger)
	return o
}

// build indexes validated, duplicate-free records.
func build(recs []types.TypeRecord, stats StatsRecorder) *Registry {
	sorted := append([]types.TypeRecord(nil), recs...)
	sort.Slice(sorted, func(i, j int) bool { return types.Less(sorted[i], sorted[j]) })

	r := &Registry{
		records: sorted,
		byKey:   make(map[types.Key]int, len(sorted)),
		byName:  make(map[nameKey]int, len(sorted)),
		tables:  make(map[tableKey][]int),
		stats:   stats,
	}

	seenVersion := make(map[types.Version]bool)
	seenBackend := make(map[types.Backend]bool)
	for i, rec := range sorted {
		r.byKey[rec.Key()] = i
		r.byName[nameKey{rec.Name, rec.Backend, rec.Version}] = i
		tk := tableKey{rec.Backend, rec.Version}
		// sorted by id within a table, so indices stay ascending
		r.tables[tk] = append(r.tables[tk], i)

		if !seenVersion[rec.Version] {
			seenVersion[rec.Version] = true
			r.versions = append(r.versions, rec.Version)
		}
		if !seenBackend[rec.Backend] {
			seenBackend[rec.Backend] = true
			r.backends = append(r.backends, rec.Backend)
		}
	}
	sort.Slice(r.backends, func(i, j int) bool { return r.backends[i] < r.backends[j] })
	r.fingerprint = fingerprint(sorted)
	return r
}

func (r *Registry) record(tk tableKey, key types.Key, hit bool) {
	if r.stats != nil {
		r.stats.Record(tk.String(), key.String(), hit)
	}
}

// IsSupported reports whether a record with exactly this key exists and is
// marked supported. An undefined key is not an error: it reports false.
func (r *Registry) IsSupported(typeID int, backend types.Backend, version types.Version) bool {
	key := types.Key{ID: typeID, Backend: backend, Version: version}
	i, ok := r.byKey[key]
	r.record(tableKey{backend, version}, key, ok)
	return ok && r.records[i].Supported
}

// Lookup returns the record for an exact key, or an error matching
// ErrNotFound.
func (r *Registry) Lookup(typeID int, backend types.Backend, version types.Version) (types.TypeRecord, error) {
	key := types.Key{ID: typeID, Backend: backend, Version: version}
	i, ok := r.byKey[key]
	r.record(tableKey{backend, version}, key, ok)
	if !ok {
		return types.TypeRecord{}, notFound(key)
	}
	return r.records[i], nil
}

// LookupByName returns the record with the given canonical name for a
// backend and version.
func (r *Registry) LookupByName(name string, backend types.Backend, version types.Version) (types.TypeRecord, error) {
	i, ok := r.byName[nameKey{name, backend, version}]
	if !ok {
		return types.TypeRecord{}, rerrors.NewNotFoundError(
			fmt.Sprintf("no type named %s for %s at %s", name, backend, version)).
			WithDetails(map[string]interface{}{"name": name, "backend": backend.String(), "version": version.String()})
	}
	return r.records[i], nil
}

// ShapeRank returns the shape rank of an exact key, or an error matching
// ErrNotFound.
func (r *Registry) ShapeRank(typeID int, backend types.Backend, version types.Version) (int, error) {
	rec, err := r.Lookup(typeID, backend, version)
	if err != nil {
		return 0, err
	}
	return rec.ShapeRank, nil
}

// ListSupported returns the supported records of one backend/version table
// in strictly ascending id order.
func (r *Registry) ListSupported(backend types.Backend, version types.Version) []types.TypeRecord {
	idx := r.tables[tableKey{backend, version}]
	out := make([]types.TypeRecord, 0, len(idx))
	for _, i := range idx {
		if r.records[i].Supported {
			out = append(out, r.records[i])
		}
	}
	return out
}

// List returns every record of one backend/version table in ascending id
// order, supported or not.
func (r *Registry) List(backend types.Backend, version types.Version) []types.TypeRecord {
	idx := r.tables[tableKey{backend, version}]
	out := make([]types.TypeRecord, len(idx))
	for j, i := range idx {
		out[j] = r.records[i]
	}
	return out
}

// Versions returns the distinct schema versions present, ascending.
func (r *Registry) Versions() []types.Version {
	return append([]types.Version(nil), r.versions...)
}

// Backends returns the distinct backends present, sorted by name.
func (r *Registry) Backends() []types.Backend {
	return append([]types.Backend(nil), r.backends...)
}

// Latest returns the greatest schema version present.
func (r *Registry) Latest() types.Version {
	return r.versions[len(r.versions)-1]
}

// HasVersion reports whether any record describes version v.
func (r *Registry) HasVersion(v types.Version) bool {
	i := sort.Search(len(r.versions), func(i int) bool { return !r.versions[i].Less(v) })
	return i < len(r.versions) && r.versions[i] == v
}

var leadingVersion = regexp.MustCompile(`^v?(\d+)\.(\d+)`)

// ResolveVersion selects the table version for a framework version string.
// An exact label ("v1.3") wins; otherwise the major.minor prefix of strings
// such as "1.3.2-dev" or "v1.3.0" is used.
func (r *Registry) ResolveVersion(raw string) (types.Version, error) {
	if v, err := types.ParseVersion(raw); err == nil && r.HasVersion(v) {
		return v, nil
	}
	if m := leadingVersion.FindStringSubmatch(raw); m != nil {
		v, err := types.ParseVersion(m[1] + "." + m[2])
		if err == nil && r.HasVersion(v) {
			return v, nil
		}
	}
	return types.Version{}, rerrors.NewNotFoundError(
		fmt.Sprintf("version %q could not be found in table", raw)).
		WithDetails(map[string]interface{}{"version": raw})
}

// Records returns a copy of every record in canonical order
// (version, backend, id).
func (r *Registry) Records() []types.TypeRecord {
	return append([]types.TypeRecord(nil), r.records...)
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Fingerprint returns a digest of the registry's content. Registries built
// from equal record sets have equal fingerprints regardless of input order.
func (r *Registry) Fingerprint() string {
	return r.fingerprint
}

func notFound(key types.Key) error {
	return rerrors.NewNotFoundError(fmt.Sprintf("no type %d for %s at %s", key.ID, key.Backend, key.Version)).
		WithDetails(map[string]interface{}{
			"id":      key.ID,
			"backend": key.Backend.String(),
			"version": key.Version.String(),
		})
}
