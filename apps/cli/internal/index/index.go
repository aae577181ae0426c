// Package index records generated builds in a sqlite manifest so later runs
// can report which assets changed.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // sqlite driver for database/sql
)

// FileRecord describes one asset of a recorded build.
type FileRecord struct {
	Path        string
	Source      string
	Hash        string
	Size        int64
	ContentType string
}

// Build is one successful generation.
type Build struct {
	ID       int64
	BundleID string
	Output   string
	Digest   string
	Strategy string
	// Commit is the git revision of the sources, "" outside a repository.
	Commit     string
	AssetCount int
	Size       int64
	CreatedAt  time.Time
}

// Open opens the sqlite database at the given path and applies pragmas.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection; one connection keeps foreign keys on.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(context.Background(), p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", p, err)
		}
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations are applied in order starting from version 0.
// Never modify existing migrations, only add new ones.
var migrations = []func(*sql.Tx) error{
	// Migration 0: builds and their files
	migrateV0,
	// Migration 1: remember the lookup strategy of each build
	migrateV1,
	// Migration 2: remember the source revision of each build
	migrateV2,
}

func migrateV0(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS builds (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            bundle_id TEXT NOT NULL,
            output TEXT NOT NULL,
            digest TEXT NOT NULL,
            asset_count INTEGER NOT NULL,
            size INTEGER NOT NULL,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS build_files (
            build_id INTEGER NOT NULL,
            path TEXT NOT NULL,
            source TEXT NOT NULL,
            hash TEXT NOT NULL,
            size INTEGER NOT NULL,
            content_type TEXT NOT NULL,
            PRIMARY KEY (build_id, path),
            FOREIGN KEY(build_id) REFERENCES builds(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_builds_output ON builds(output);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(context.Background(), stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateV1(tx *sql.Tx) error {
	_, err := tx.ExecContext(context.Background(), `ALTER TABLE builds ADD COLUMN strategy TEXT DEFAULT '';`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return fmt.Errorf("add strategy column: %w", err)
	}
	return nil
}

func migrateV2(tx *sql.Tx) error {
	_, err := tx.ExecContext(context.Background(), `ALTER TABLE builds ADD COLUMN source_commit TEXT DEFAULT '';`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return fmt.Errorf("add source_commit column: %w", err)
	}
	return nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.ExecContext(context.Background(), schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.QueryRowContext(context.Background(), "SELECT COALESCE(MAX(version), -1) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for i := currentVersion + 1; i < len(migrations); i++ {
		if err := runMigration(db, i); err != nil {
			return fmt.Errorf("run migration %d: %w", i, err)
		}
	}
	return nil
}

func runMigration(db *sql.DB, version int) error {
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := migrations[version](tx); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(context.Background(), "INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", version, now); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the current manifest schema version.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	row := db.QueryRowContext(context.Background(), "SELECT COALESCE(MAX(version), -1) FROM schema_version")
	err := row.Scan(&version)
	return version, err
}

// RecordBuild stores b and its files in one transaction and returns the new
// build ID. A zero CreatedAt is replaced with the current time.
func RecordBuild(db *sql.DB, b Build, files []FileRecord) (int64, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO builds (bundle_id, output, digest, strategy, source_commit, asset_count, size, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		b.BundleID, b.Output, b.Digest, b.Strategy, b.Commit, b.AssetCount, b.Size, b.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("build id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO build_files (build_id, path, source, hash, size, content_type) VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return 0, fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()
	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, id, f.Path, f.Source, f.Hash, f.Size, f.ContentType); err != nil {
			return 0, fmt.Errorf("insert file %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit build: %w", err)
	}
	return id, nil
}

// LatestBuild returns the most recent build for output. The zero Build and a
// nil error mean nothing was recorded yet.
func LatestBuild(db *sql.DB, output string) (Build, error) {
	row := db.QueryRowContext(context.Background(),
		`SELECT id, bundle_id, output, digest, COALESCE(strategy, ''), COALESCE(source_commit, ''), asset_count, size, created_at
         FROM builds WHERE output = ? ORDER BY id DESC LIMIT 1;`, output)
	var b Build
	var created string
	if err := row.Scan(&b.ID, &b.BundleID, &b.Output, &b.Digest, &b.Strategy, &b.Commit, &b.AssetCount, &b.Size, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Build{}, nil
		}
		return Build{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Build{}, fmt.Errorf("parse created_at: %w", err)
	}
	b.CreatedAt = t
	return b, nil
}

// LoadFiles returns the files of a build keyed by path.
func LoadFiles(db *sql.DB, buildID int64) (map[string]FileRecord, error) {
	rows, err := db.QueryContext(context.Background(),
		`SELECT path, source, hash, size, content_type FROM build_files WHERE build_id = ?;`, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]FileRecord)
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Source, &f.Hash, &f.Size, &f.ContentType); err != nil {
			return nil, err
		}
		out[f.Path] = f
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep builds of output and reports how
// many were removed.
func Prune(db *sql.DB, output string, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := db.ExecContext(context.Background(),
		`DELETE FROM builds WHERE output = ? AND id NOT IN (
            SELECT id FROM builds WHERE output = ? ORDER BY id DESC LIMIT ?
        );`, output, output, keep)
	if err != nil {
		return 0, fmt.Errorf("prune builds: %w", err)
	}
	return res.RowsAffected()
}

// ChangeKind classifies a difference between two builds.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

// Change is one asset that differs between two builds.
type Change struct {
	Path string
	Kind ChangeKind
}

// Diff compares two file sets and returns the changes sorted by path. A
// file is modified when its hash or content type differs.
func Diff(previous, current map[string]FileRecord) []Change {
	var changes []Change
	for path, cur := range current {
		prev, ok := previous[path]
		switch {
		case !ok:
			changes = append(changes, Change{Path: path, Kind: Added})
		case prev.Hash != cur.Hash || prev.ContentType != cur.ContentType:
			changes = append(changes, Change{Path: path, Kind: Modified})
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			changes = append(changes, Change{Path: path, Kind: Removed})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}
