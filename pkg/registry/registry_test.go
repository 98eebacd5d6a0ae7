package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/internal/observability"
	"github.com/cyclus/dbtypes/internal/source"
	"github.com/cyclus/dbtypes/pkg/table"
	"github.com/cyclus/dbtypes/pkg/types"
)

var (
	v10 = types.MustParseVersion("v1.0")
	v11 = types.MustParseVersion("v1.1")
	v12 = types.MustParseVersion("v1.2")
	v13 = types.MustParseVersion("v1.3")
)

func loadEmbedded(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	reg, err := Load(context.Background(), source.Embedded(), opts...)
	require.NoError(t, err)
	return reg
}

// tableSource serves a fixed table.
type tableSource struct {
	tbl *table.Table
	err error
}

func (s tableSource) Name() string { return "test" }

func (s tableSource) Table(ctx context.Context) (*table.Table, error) {
	return s.tbl, s.err
}

func row(id int, name, native string, rank int, backend, version string, supported int) []any {
	return []any{id, name, native, rank, backend, version, supported}
}

func smallTable(rows ...[]any) *table.Table {
	return &table.Table{Header: append([]string(nil), table.DefaultHeader...), Rows: rows}
}

func TestLoad_Embedded(t *testing.T) {
	reg := loadEmbedded(t)

	assert.Equal(t, 1056, reg.Len())
	assert.Equal(t, []types.Version{v10, v11, v12, v13}, reg.Versions())
	assert.Equal(t, []types.Backend{types.BackendHDF5, types.BackendSQLite}, reg.Backends())
	assert.Equal(t, v13, reg.Latest())
}

func TestIsSupported(t *testing.T) {
	reg := loadEmbedded(t)

	tests := []struct {
		name    string
		id      int
		backend types.Backend
		version types.Version
		want    bool
	}{
		{"blob on sqlite", 6, types.BackendSQLite, v10, true},
		{"vector of bool unsupported", 8, types.BackendSQLite, v10, false},
		{"undefined id", 9999, types.BackendSQLite, v10, false},
		{"undefined version", 0, types.BackendSQLite, types.MustParseVersion("v9.9"), false},
		{"id added in v1.3", 128, types.BackendSQLite, v13, true},
		{"id absent before v1.3", 128, types.BackendSQLite, v12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.IsSupported(tt.id, tt.backend, tt.version))
		})
	}
}

func TestLookup(t *testing.T) {
	reg := loadEmbedded(t)

	rec, err := reg.Lookup(1, types.BackendHDF5, v11)
	require.NoError(t, err)
	assert.Equal(t, "INT", rec.Name)
	assert.Equal(t, "int", rec.NativeRepr)
	assert.Equal(t, 0, rec.ShapeRank)
	assert.True(t, rec.Supported)

	_, err = reg.Lookup(9999, types.BackendHDF5, v11)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrLoad))
	assert.Equal(t, rerrors.CodeNotFound, rerrors.GetCode(err))
}

func TestShapeRank(t *testing.T) {
	reg := loadEmbedded(t)

	rank, err := reg.ShapeRank(4, types.BackendSQLite, v10)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rec, err := reg.LookupByName("MAP_STRING_STRING", types.BackendSQLite, v10)
	require.NoError(t, err)
	rank, err = reg.ShapeRank(rec.ID, types.BackendSQLite, v10)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	_, err = reg.ShapeRank(9999, types.BackendSQLite, v10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSupported(t *testing.T) {
	reg := loadEmbedded(t)

	counts := map[types.Version]map[types.Backend]int{
		v10: {types.BackendSQLite: 14, types.BackendHDF5: 21},
		v11: {types.BackendSQLite: 52, types.BackendHDF5: 55},
		v13: {types.BackendSQLite: 68, types.BackendHDF5: 55},
	}
	for v, byBackend := range counts {
		for b, want := range byBackend {
			list := reg.ListSupported(b, v)
			assert.Len(t, list, want, "%s %s", b, v)
			for i, rec := range list {
				assert.True(t, rec.Supported)
				if i > 0 {
					assert.Less(t, list[i-1].ID, rec.ID)
				}
			}
		}
	}

	assert.Empty(t, reg.ListSupported(types.BackendSQLite, types.MustParseVersion("v2.0")))
	assert.Len(t, reg.List(types.BackendSQLite, v13), 144)
}

func TestLookupByName(t *testing.T) {
	reg := loadEmbedded(t)

	rec, err := reg.LookupByName("VL_STRING", types.BackendHDF5, v10)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.ID)

	_, err = reg.LookupByName("NOPE", types.BackendHDF5, v10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveVersion(t *testing.T) {
	reg := loadEmbedded(t)

	tests := []struct {
		raw     string
		want    types.Version
		wantErr bool
	}{
		{raw: "v1.3", want: v13},
		{raw: "1.1", want: v11},
		{raw: "1.3.2", want: v13},
		{raw: "v1.2.0-rc1", want: v12},
		{raw: "1.0-dev", want: v10},
		{raw: "2.0.0", wantErr: true},
		{raw: "latest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := reg.ResolveVersion(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecords_CanonicalOrder(t *testing.T) {
	reg := loadEmbedded(t)
	recs := reg.Records()
	for i := 1; i < len(recs); i++ {
		assert.True(t, types.Less(recs[i-1], recs[i]), "records %d and %d out of order", i-1, i)
	}

	recs[0].Name = "CHANGED"
	assert.Equal(t, "BOOL", reg.Records()[0].Name)
}

func TestFingerprint(t *testing.T) {
	a := loadEmbedded(t)
	b := loadEmbedded(t)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)

	// input order does not matter
	recs := a.Records()
	reversed := make([]types.TypeRecord, len(recs))
	for i, r := range recs {
		reversed[len(recs)-1-i] = r
	}
	c, err := FromRecords(reversed)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), c.Fingerprint())

	recs[0].Supported = !recs[0].Supported
	d, err := FromRecords(recs)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		tbl  *table.Table
		code string
	}{
		{
			name: "empty",
			tbl:  smallTable(),
			code: rerrors.CodeEmptyTable,
		},
		{
			name: "missing column",
			tbl:  &table.Table{Header: []string{"id", "name"}, Rows: [][]any{{0, "BOOL"}}},
			code: rerrors.CodeMalformedRow,
		},
		{
			name: "short row",
			tbl:  smallTable([]any{0, "BOOL", "bool"}),
			code: rerrors.CodeMalformedRow,
		},
		{
			name: "negative rank",
			tbl:  smallTable(row(0, "BOOL", "bool", -1, "SQLite", "v1.0", 1)),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "lowercase name",
			tbl:  smallTable(row(0, "bool", "bool", 0, "SQLite", "v1.0", 1)),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "unknown backend",
			tbl:  smallTable(row(0, "BOOL", "bool", 0, "Postgres", "v1.0", 1)),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "bad version",
			tbl:  smallTable(row(0, "BOOL", "bool", 0, "SQLite", "one", 1)),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "supported out of range",
			tbl:  smallTable(row(0, "BOOL", "bool", 0, "SQLite", "v1.0", 2)),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "string id",
			tbl:  smallTable([]any{"0", "BOOL", "bool", 0, "SQLite", "v1.0", 1}),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "int64 id out of range",
			tbl:  smallTable([]any{int64(1) << 40, "BOOL", "bool", 0, "SQLite", "v1.0", 1}),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "json number id out of range",
			tbl:  smallTable([]any{json.Number("4294967296"), "BOOL", "bool", 0, "SQLite", "v1.0", 1}),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "float rank out of range",
			tbl:  smallTable([]any{0, "BOOL", "bool", float64(1 << 33), "SQLite", "v1.0", 1}),
			code: rerrors.CodeInvalidField,
		},
		{
			name: "conflicting duplicate",
			tbl: smallTable(
				row(0, "BOOL", "bool", 0, "SQLite", "v1.0", 1),
				row(0, "BOOL", "bool", 0, "SQLite", "v1.0", 0),
			),
			code: rerrors.CodeDuplicateKey,
		},
		{
			name: "name bound to two ids",
			tbl: smallTable(
				row(0, "BOOL", "bool", 0, "SQLite", "v1.0", 1),
				row(1, "BOOL", "bool", 0, "SQLite", "v1.0", 1),
			),
			code: rerrors.CodeInconsistentID,
		},
		{
			name: "backends disagree on id",
			tbl: smallTable(
				row(0, "BOOL", "bool", 0, "SQLite", "v1.0", 1),
				row(0, "INT", "int", 0, "HDF5", "v1.0", 1),
			),
			code: rerrors.CodeInconsistentID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := Load(context.Background(), tableSource{tbl: tt.tbl})
			require.Error(t, err)
			assert.Nil(t, reg)
			assert.ErrorIs(t, err, ErrLoad)
			assert.Equal(t, tt.code, rerrors.GetCode(err))
		})
	}
}

func TestLoad_SourceFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := Load(context.Background(), tableSource{err: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, rerrors.CodeSourceFailed, rerrors.GetCode(err))
}

func TestLoad_IdenticalDuplicateIsIdempotent(t *testing.T) {
	tbl := smallTable(
		row(0, "BOOL", "bool", 0, "HDF5", "v1.0", 1),
		row(1, "INT", "int", 0, "HDF5", "v1.0", 0),
		row(0, "BOOL", "bool", 0, "HDF5", "v1.0", 1),
	)
	reg, err := FromTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.IsSupported(0, types.BackendHDF5, v10))
	assert.False(t, reg.IsSupported(1, types.BackendHDF5, v10))
}

func TestLoad_Strict(t *testing.T) {
	_, err := Load(context.Background(), source.Embedded(), WithStrict(true))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.Equal(t, rerrors.CodeLintFailed, rerrors.GetCode(err))

	clean := smallTable(
		row(0, "BOOL", "bool", 0, "SQLite", "v1.0", 1),
		row(1, "VECTOR_INT", "std::vector<int>", 1, "SQLite", "v1.0", 1),
	)
	_, err = FromTable(clean, WithStrict(true))
	assert.NoError(t, err)
}

func TestWithStats(t *testing.T) {
	stats := observability.NewLookupStats(time.Hour)
	reg := loadEmbedded(t, WithStats(stats))

	reg.IsSupported(0, types.BackendSQLite, v10)
	reg.IsSupported(9999, types.BackendSQLite, v10)
	_, _ = reg.Lookup(9999, types.BackendSQLite, v10)

	tables := stats.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "SQLite/v1.0", tables[0].Table)
	assert.Equal(t, int64(3), tables[0].Queries)
	assert.Equal(t, int64(2), tables[0].Misses)

	misses := stats.TopMisses(1)
	require.Len(t, misses, 1)
	assert.Equal(t, "SQLite/v1.0/9999", misses[0].Key)
	assert.Equal(t, int64(2), misses[0].Frequency)
}

var _ StatsRecorder = (*observability.LookupStats)(nil)

type countingRecorder struct {
	hits, misses int
	tables       map[string]bool
}

func (c *countingRecorder) Record(table, _ string, hit bool) {
	if c.tables == nil {
		c.tables = make(map[string]bool)
	}
	c.tables[table] = true
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func TestWithStats_CustomRecorder(t *testing.T) {
	rec := &countingRecorder{}
	reg := loadEmbedded(t, WithStats(rec))

	reg.IsSupported(6, types.BackendSQLite, v10)
	_, _ = reg.ShapeRank(6, types.BackendHDF5, v11)
	reg.IsSupported(9999, types.BackendHDF5, v11)

	assert.Equal(t, 2, rec.hits)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, map[string]bool{"SQLite/v1.0": true, "HDF5/v1.1": true}, rec.tables)
}
