package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/internal/logging"
	"github.com/cyclus/dbtypes/pkg/types"
)

// ErrSnapshotNotFound is returned when a snapshot id is unknown or the
// catalog holds no snapshots.
var ErrSnapshotNotFound = rerrors.New(rerrors.ErrCategoryCatalog, rerrors.CodeSnapshotNotFound, "snapshot not found")

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	SnapshotID  string
	Fingerprint string
	Source      string
	RecordCount int
	CreatedAt   time.Time
}

// SupportRow is one line of a support matrix: whether each backend
// supports a type at a version.
type SupportRow struct {
	ID        int
	Name      string
	Supported map[types.Backend]bool
}

// Catalog is a SQLite store of registry snapshots.
type Catalog struct {
	db     *sql.DB // Write connection (single writer)
	dbPath string
	mu     sync.Mutex // Write-only lock
	logger *zap.Logger
}

// NewCatalog opens or creates the catalog database at dbPath.
func NewCatalog(dbPath string, logger *zap.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Catalog{
		db:     db,
		dbPath: dbPath,
		logger: logging.OrNop(logger),
	}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// WriteSnapshot stores recs under a new snapshot id. If a snapshot with the
// same fingerprint already exists it is returned unchanged.
func (c *Catalog) WriteSnapshot(ctx context.Context, recs []types.TypeRecord, fingerprint, source string) (SnapshotInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, err := c.snapshotByFingerprint(ctx, fingerprint); err == nil {
		c.logger.Debug("snapshot already stored",
			zap.String("snapshot_id", existing.SnapshotID),
			zap.String("fingerprint", fingerprint))
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, rerrors.NewCatalogError(rerrors.CodeCatalogWrite, "failed to check fingerprint", err)
	}

	info := SnapshotInfo{
		SnapshotID:  uuid.NewString(),
		Fingerprint: fingerprint,
		Source:      source,
		RecordCount: len(recs),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return SnapshotInfo{}, rerrors.NewCatalogError(rerrors.CodeCatalogWrite, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (snapshot_id, fingerprint, source, record_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		info.SnapshotID, info.Fingerprint, info.Source, info.RecordCount, info.CreatedAt.Unix(),
	); err != nil {
		return SnapshotInfo{}, rerrors.NewCatalogError(rerrors.CodeCatalogWrite, "failed to insert snapshot", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO type_records (
			snapshot_id, id, name, native_repr, shape_rank,
			backend, version, version_major, version_minor, supported
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return SnapshotInfo{}, rerrors.NewCatalogError(rerrors.CodeCatalogWrite, "failed to prepare record insert", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx,
			info.SnapshotID, r.ID, r.Name, r.NativeRepr, r.ShapeRank,
			r.Backend.String(), r.Version.String(), r.Version.Major, r.Version.Minor, r.Supported,
		); err != nil {
			return SnapshotInfo{}, rerrors.NewCatalogError(rerrors.CodeCatalogWrite,
				fmt.Sprintf("failed to insert record %s", r.Key()), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SnapshotInfo{}, rerrors.NewCatalogError(rerrors.CodeCatalogWrite, "failed to commit snapshot", err)
	}

	c.logger.Info("snapshot written",
		zap.String("snapshot_id", info.SnapshotID),
		zap.String("fingerprint", fingerprint),
		zap.Int("records", info.RecordCount))
	return info, nil
}

const snapshotColumns = `snapshot_id, fingerprint, source, record_count, created_at`

func scanSnapshot(row interface{ Scan(...any) error }) (SnapshotInfo, error) {
	var info SnapshotInfo
	var createdAt int64
	if err := row.Scan(&info.SnapshotID, &info.Fingerprint, &info.Source, &info.RecordCount, &createdAt); err != nil {
		return SnapshotInfo{}, err
	}
	info.CreatedAt = time.Unix(createdAt, 0).UTC()
	return info, nil
}

func (c *Catalog) snapshotByFingerprint(ctx context.Context, fingerprint string) (SnapshotInfo, error) {
	return scanSnapshot(c.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE fingerprint = ?`, fingerprint))
}

// GetSnapshot returns the snapshot with the given id.
func (c *Catalog) GetSnapshot(ctx context.Context, snapshotID string) (SnapshotInfo, error) {
	info, err := scanSnapshot(c.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE snapshot_id = ?`, snapshotID))
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, ErrSnapshotNotFound.WithDetails(map[string]interface{}{"snapshot_id": snapshotID})
	}
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("catalog: failed to get snapshot %s: %w", snapshotID, err)
	}
	return info, nil
}

// LatestSnapshot returns the most recently written snapshot.
func (c *Catalog) LatestSnapshot(ctx context.Context) (SnapshotInfo, error) {
	info, err := scanSnapshot(c.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, ErrSnapshotNotFound
	}
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("catalog: failed to get latest snapshot: %w", err)
	}
	return info, nil
}

// ListSnapshots returns every snapshot, oldest first.
func (c *Catalog) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		info, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: failed to scan snapshot: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: error iterating snapshots: %w", err)
	}
	return out, nil
}

// LoadRecords returns the records of a snapshot in canonical order.
func (c *Catalog) LoadRecords(ctx context.Context, snapshotID string) ([]types.TypeRecord, error) {
	if _, err := c.GetSnapshot(ctx, snapshotID); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, native_repr, shape_rank, backend, version_major, version_minor, supported
		FROM type_records WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query records: %w", err)
	}
	defer rows.Close()

	var recs []types.TypeRecord
	for rows.Next() {
		var r types.TypeRecord
		var backend string
		if err := rows.Scan(&r.ID, &r.Name, &r.NativeRepr, &r.ShapeRank, &backend,
			&r.Version.Major, &r.Version.Minor, &r.Supported); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan record: %w", err)
		}
		if r.Backend, err = types.ParseBackend(backend); err != nil {
			return nil, fmt.Errorf("catalog: record %d: %w", r.ID, err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: error iterating records: %w", err)
	}

	sort.Slice(recs, func(i, j int) bool { return types.Less(recs[i], recs[j]) })
	return recs, nil
}

// SupportMatrix returns, for every type defined at version in the snapshot,
// whether each backend supports it. Rows are ordered by id.
func (c *Catalog) SupportMatrix(ctx context.Context, snapshotID string, version types.Version) ([]SupportRow, error) {
	if _, err := c.GetSnapshot(ctx, snapshotID); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, backend, supported
		FROM type_records
		WHERE snapshot_id = ? AND version = ?
		ORDER BY id ASC, backend ASC`, snapshotID, version.String())
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query support matrix: %w", err)
	}
	defer rows.Close()

	var out []SupportRow
	for rows.Next() {
		var id int
		var name, backend string
		var supported bool
		if err := rows.Scan(&id, &name, &backend, &supported); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan support row: %w", err)
		}
		b, err := types.ParseBackend(backend)
		if err != nil {
			return nil, fmt.Errorf("catalog: type %d: %w", id, err)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, SupportRow{ID: id, Name: name, Supported: make(map[types.Backend]bool)})
		}
		out[len(out)-1].Supported[b] = supported
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: error iterating support rows: %w", err)
	}
	return out, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.dbPath
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
