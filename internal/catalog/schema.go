// Package catalog persists registry snapshots in a SQLite database so that
// analysis tools can query type support with plain SQL.
package catalog

// CreateSnapshotsTableSQL creates the snapshots table. A snapshot is one
// immutable copy of a registry's records, identified by a random id and
// deduplicated by content fingerprint.
const CreateSnapshotsTableSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL UNIQUE,
    source TEXT NOT NULL DEFAULT '',
    record_count INTEGER NOT NULL,
    created_at INTEGER NOT NULL
)`

// CreateTypeRecordsTableSQL creates the type records table.
const CreateTypeRecordsTableSQL = `
CREATE TABLE IF NOT EXISTS type_records (
    snapshot_id TEXT NOT NULL,
    id INTEGER NOT NULL,
    name TEXT NOT NULL,
    native_repr TEXT NOT NULL,
    shape_rank INTEGER NOT NULL,
    backend TEXT NOT NULL,
    version TEXT NOT NULL,
    version_major INTEGER NOT NULL,
    version_minor INTEGER NOT NULL,
    supported INTEGER NOT NULL,
    PRIMARY KEY (snapshot_id, backend, version, id),
    FOREIGN KEY (snapshot_id) REFERENCES snapshots(snapshot_id)
)`

// CreateIndexesSQL creates indexes for the common lookup patterns.
var CreateIndexesSQL = []string{
	// Support matrix queries go by snapshot, version and name
	`CREATE INDEX IF NOT EXISTS idx_type_records_name ON type_records(snapshot_id, version, name)`,

	`CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at)`,
}

// AllSchemaSQL returns all SQL statements needed to initialize the catalog.
func AllSchemaSQL() []string {
	statements := []string{
		CreateSnapshotsTableSQL,
		CreateTypeRecordsTableSQL,
	}
	return append(statements, CreateIndexesSQL...)
}
