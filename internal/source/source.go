// Package source provides the places a type definition table can be read
// from: the copy compiled into the binary, a local file, an object store,
// or a catalog snapshot.
package source

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/cyclus/dbtypes/internal/storage"
	"github.com/cyclus/dbtypes/pkg/table"
	"github.com/cyclus/dbtypes/pkg/types"
)

//go:embed data/dbtypes.json
var embeddedTable []byte

// EmbeddedName is the name reported by the embedded source.
const EmbeddedName = "embedded:dbtypes.json"

// EmbeddedSource serves the definition table compiled into the binary.
type EmbeddedSource struct{}

// Embedded returns the embedded source.
func Embedded() EmbeddedSource { return EmbeddedSource{} }

func (EmbeddedSource) Name() string { return EmbeddedName }

func (EmbeddedSource) Table(ctx context.Context) (*table.Table, error) {
	return table.Decode(embeddedTable, table.FormatJSON)
}

// EmbeddedBytes returns a copy of the raw embedded table.
func EmbeddedBytes() []byte {
	return append([]byte(nil), embeddedTable...)
}

// FileSource reads a table from the local filesystem. The format is taken
// from the file extension.
type FileSource struct {
	path string
}

// File returns a source reading path.
func File(path string) *FileSource { return &FileSource{path: path} }

func (f *FileSource) Name() string { return "file:" + f.path }

func (f *FileSource) Table(ctx context.Context) (*table.Table, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("source: failed to read %s: %w", f.path, err)
	}
	return table.DecodePath(data, f.path)
}

// ObjectSource reads a table through an object store.
type ObjectSource struct {
	store      storage.ObjectStorage
	objectPath string
}

// Object returns a source fetching objectPath from store.
func Object(store storage.ObjectStorage, objectPath string) *ObjectSource {
	return &ObjectSource{store: store, objectPath: objectPath}
}

func (o *ObjectSource) Name() string { return "object:" + o.objectPath }

func (o *ObjectSource) Table(ctx context.Context) (*table.Table, error) {
	data, err := o.store.Get(ctx, o.objectPath)
	if err != nil {
		return nil, fmt.Errorf("source: failed to fetch %s: %w", o.objectPath, err)
	}
	return table.DecodePath(data, o.objectPath)
}

// RecordLoader loads the records of a stored snapshot.
type RecordLoader interface {
	LoadRecords(ctx context.Context, snapshotID string) ([]types.TypeRecord, error)
}

// SnapshotSource rebuilds a table from a catalog snapshot.
type SnapshotSource struct {
	loader     RecordLoader
	snapshotID string
}

// Snapshot returns a source reading snapshotID from loader.
func Snapshot(loader RecordLoader, snapshotID string) *SnapshotSource {
	return &SnapshotSource{loader: loader, snapshotID: snapshotID}
}

func (s *SnapshotSource) Name() string { return "snapshot:" + s.snapshotID }

func (s *SnapshotSource) Table(ctx context.Context) (*table.Table, error) {
	recs, err := s.loader.LoadRecords(ctx, s.snapshotID)
	if err != nil {
		return nil, fmt.Errorf("source: failed to load snapshot %s: %w", s.snapshotID, err)
	}
	return table.FromRecords(recs), nil
}
