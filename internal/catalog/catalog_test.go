package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cyclus/dbtypes/pkg/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"), nil)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testRecords() []types.TypeRecord {
	v10 := types.MustParseVersion("v1.0")
	v11 := types.MustParseVersion("v1.1")
	var recs []types.TypeRecord
	for _, b := range []types.Backend{types.BackendHDF5, types.BackendSQLite} {
		recs = append(recs,
			types.TypeRecord{ID: 0, Name: "BOOL", NativeRepr: "bool", Backend: b, Version: v10, Supported: true},
			types.TypeRecord{ID: 8, Name: "VECTOR_BOOL", NativeRepr: "std::vector<bool>", ShapeRank: 1, Backend: b, Version: v10, Supported: b == types.BackendHDF5},
			types.TypeRecord{ID: 0, Name: "BOOL", NativeRepr: "bool", Backend: b, Version: v11, Supported: true},
		)
	}
	return recs
}

func TestCatalog_WriteAndLoad(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	info, err := c.WriteSnapshot(ctx, testRecords(), "fp-1", "embedded")
	if err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
	if info.SnapshotID == "" {
		t.Fatal("expected a snapshot id")
	}
	if info.RecordCount != 6 {
		t.Errorf("record_count mismatch: got %d, want 6", info.RecordCount)
	}

	got, err := c.GetSnapshot(ctx, info.SnapshotID)
	if err != nil {
		t.Fatalf("failed to get snapshot: %v", err)
	}
	if got != info {
		t.Errorf("snapshot mismatch: got %+v, want %+v", got, info)
	}

	recs, err := c.LoadRecords(ctx, info.SnapshotID)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(recs) != 6 {
		t.Fatalf("expected 6 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if !types.Less(recs[i-1], recs[i]) {
			t.Errorf("records %d and %d out of canonical order", i-1, i)
		}
	}
	want := map[types.Key]types.TypeRecord{}
	for _, r := range testRecords() {
		want[r.Key()] = r
	}
	for _, r := range recs {
		if want[r.Key()] != r {
			t.Errorf("record %s mismatch: got %+v, want %+v", r.Key(), r, want[r.Key()])
		}
	}
}

func TestCatalog_WriteIsIdempotentOnFingerprint(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	first, err := c.WriteSnapshot(ctx, testRecords(), "fp-1", "a")
	if err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
	second, err := c.WriteSnapshot(ctx, testRecords(), "fp-1", "b")
	if err != nil {
		t.Fatalf("failed to write snapshot again: %v", err)
	}
	if first.SnapshotID != second.SnapshotID {
		t.Errorf("expected same snapshot id, got %s and %s", first.SnapshotID, second.SnapshotID)
	}

	third, err := c.WriteSnapshot(ctx, testRecords()[:2], "fp-2", "c")
	if err != nil {
		t.Fatalf("failed to write second snapshot: %v", err)
	}

	list, err := c.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(list))
	}

	latest, err := c.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("failed to get latest snapshot: %v", err)
	}
	if latest.SnapshotID != third.SnapshotID {
		t.Errorf("latest mismatch: got %s, want %s", latest.SnapshotID, third.SnapshotID)
	}
}

func TestCatalog_NotFound(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	if _, err := c.LatestSnapshot(ctx); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound from empty catalog, got %v", err)
	}
	if _, err := c.GetSnapshot(ctx, "nope"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := c.LoadRecords(ctx, "nope"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestCatalog_SupportMatrix(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	info, err := c.WriteSnapshot(ctx, testRecords(), "fp-1", "embedded")
	if err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}

	matrix, err := c.SupportMatrix(ctx, info.SnapshotID, types.MustParseVersion("v1.0"))
	if err != nil {
		t.Fatalf("failed to get support matrix: %v", err)
	}
	if len(matrix) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(matrix))
	}
	if matrix[0].Name != "BOOL" || !matrix[0].Supported[types.BackendSQLite] || !matrix[0].Supported[types.BackendHDF5] {
		t.Errorf("unexpected BOOL row: %+v", matrix[0])
	}
	vb := matrix[1]
	if vb.ID != 8 || vb.Supported[types.BackendSQLite] || !vb.Supported[types.BackendHDF5] {
		t.Errorf("unexpected VECTOR_BOOL row: %+v", vb)
	}

	empty, err := c.SupportMatrix(ctx, info.SnapshotID, types.MustParseVersion("v9.9"))
	if err != nil {
		t.Fatalf("failed to get empty support matrix: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no rows, got %d", len(empty))
	}
}

func TestCatalog_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	c, err := NewCatalog(path, nil)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	info, err := c.WriteSnapshot(ctx, testRecords(), "fp-1", "embedded")
	if err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
	c.Close()

	reopened, err := NewCatalog(path, nil)
	if err != nil {
		t.Fatalf("failed to reopen catalog: %v", err)
	}
	defer reopened.Close()

	recs, err := reopened.LoadRecords(ctx, info.SnapshotID)
	if err != nil {
		t.Fatalf("failed to load records after reopen: %v", err)
	}
	if len(recs) != 6 {
		t.Errorf("expected 6 records after reopen, got %d", len(recs))
	}
}
