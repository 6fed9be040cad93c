package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	body       TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteRepository persists the task snapshot as a single row in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	key string
}

// NewSQLiteRepository opens (or creates) a SQLite database at dbPath and
// ensures the snapshots table exists. An empty key uses DefaultStorageKey.
// The caller is responsible for calling Close.
func NewSQLiteRepository(dbPath, key string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if key == "" {
		key = DefaultStorageKey
	}
	return &SQLiteRepository{db: db, key: key}, nil
}

// Close releases the underlying database connection.
func (r *SQLiteRepository) Close() error { return r.db.Close() }

// Load reads and decodes the snapshot stored under the repository key.
func (r *SQLiteRepository) Load(ctx context.Context) ([]Task, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE key = ?`, r.key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return Decode([]byte(body))
}

// SaveAll overwrites the snapshot row.
func (r *SQLiteRepository) SaveAll(ctx context.Context, tasks []Task) error {
	now := time.Now().UTC()
	body, err := Encode(tasks, now)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, version, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			version = excluded.version,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		r.key, SnapshotVersion, string(body), now,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Preserve copies the snapshot row to key+UnreadableSuffix, replacing any
// earlier copy.
func (r *SQLiteRepository) Preserve(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, version, body, updated_at)
		SELECT ?, version, body, ? FROM snapshots WHERE key = ?
		ON CONFLICT(key) DO UPDATE SET
			version = excluded.version,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		r.key+UnreadableSuffix, time.Now().UTC(), r.key,
	)
	if err != nil {
		return fmt.Errorf("preserve snapshot: %w", err)
	}
	return nil
}
