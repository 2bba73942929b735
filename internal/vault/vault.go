// Package vault implements the KeyVault (spec.md §4.1): a durable
// PSSH->key mapping with DRM-type label, backed by a single-file embedded
// sqlite database. Grounded on the teacher's internal/persistence/sqlite
// connection-pool pattern (pure-Go modernc.org/sqlite driver, WAL mode,
// PRAGMA-bearing DSN).
package vault

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/berrizdl/core/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS key_entries (
	pssh       TEXT PRIMARY KEY,
	value_type TEXT NOT NULL,
	value_data TEXT NOT NULL,
	drm_type   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TRIGGER IF NOT EXISTS key_entries_touch_updated_at
AFTER UPDATE ON key_entries
FOR EACH ROW
BEGIN
	UPDATE key_entries SET updated_at = CURRENT_TIMESTAMP WHERE pssh = NEW.pssh;
END;
`

// valueTypeString is the only value_type Store writes: every key is stored
// as a string, and the read paths do not consult value_type.
const valueTypeString = "string"

// Vault is the durable KeyVault. Each operation opens and releases its own
// connection from the shared pool (spec.md §4.1, §5: "independent
// short-lived connections per call are acceptable").
type Vault struct {
	db *sql.DB
}

// Open initializes the sqlite-backed vault at dbPath, creating the schema
// if absent.
func Open(dbPath string) (*Vault, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("vault: open failed: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault: ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault: schema init failed: %w", err)
	}
	return &Vault{db: db}, nil
}

// Close releases the underlying connection pool.
func (v *Vault) Close() error { return v.db.Close() }

// Store upserts (pssh, key, drmType). Re-storing under the same pssh
// replaces the key and (via the trigger) refreshes updated_at (spec.md
// §4.1, §8).
func (v *Vault) Store(ctx context.Context, pssh, key, drmType string) error {
	now := time.Now().UTC()
	_, err := v.db.ExecContext(ctx, `
		INSERT INTO key_entries (pssh, value_type, value_data, drm_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pssh) DO UPDATE SET
			value_data = excluded.value_data,
			drm_type   = excluded.drm_type,
			updated_at = excluded.updated_at
	`, pssh, valueTypeString, key, drmType, now, now)
	if err != nil {
		return fmt.Errorf("vault: store %s: %w", pssh, err)
	}
	return nil
}

// Retrieve returns the most recent key for pssh, or ok=false if absent.
func (v *Vault) Retrieve(ctx context.Context, pssh string) (key string, ok bool, err error) {
	row := v.db.QueryRowContext(ctx, `SELECT value_data FROM key_entries WHERE pssh = ?`, pssh)
	if err := row.Scan(&key); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("vault: retrieve %s: %w", pssh, err)
	}
	return key, true, nil
}

// RetrieveWithDrm returns the key and its drm_type label.
func (v *Vault) RetrieveWithDrm(ctx context.Context, pssh string) (key, drmType string, ok bool, err error) {
	row := v.db.QueryRowContext(ctx, `SELECT value_data, drm_type FROM key_entries WHERE pssh = ?`, pssh)
	if err := row.Scan(&key, &drmType); err != nil {
		if err == sql.ErrNoRows {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("vault: retrieve %s: %w", pssh, err)
	}
	return key, drmType, true, nil
}

// Contains reports whether pssh has a stored key.
func (v *Vault) Contains(ctx context.Context, pssh string) (bool, error) {
	_, ok, err := v.Retrieve(ctx, pssh)
	return ok, err
}

// ListByDrm returns every (pssh, key) pair stored under the given drm type.
func (v *Vault) ListByDrm(ctx context.Context, drmType string) ([]domain.KeyEntry, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT pssh, value_data, drm_type, created_at, updated_at
		FROM key_entries WHERE drm_type = ? ORDER BY updated_at DESC
	`, drmType)
	if err != nil {
		return nil, fmt.Errorf("vault: list %s: %w", drmType, err)
	}
	defer rows.Close()

	var out []domain.KeyEntry
	for rows.Next() {
		var e domain.KeyEntry
		if err := rows.Scan(&e.Pssh, &e.Key, &e.DrmType, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("vault: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
