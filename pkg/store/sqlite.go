package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// Busy-retry policy for transient SQLITE_BUSY conditions.
const (
	busyRetries      = 4
	busyInitialDelay = 50 * time.Millisecond
	busyMaxDelay     = time.Second
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at
		ON cache_entries (expires_at)`,
}

// SQLiteStore is a file-backed store using an embedded SQLite database.
// One long-lived handle is shared by all callers. The database runs in
// WAL mode so readers do not block the writer; writes that hit a
// transient SQLITE_BUSY condition are retried with exponential backoff
// before a storage error surfaces.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, creating the file, its
// parent directories and the schema as needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cannot create cache directory %s", dir)
		}
	}

	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cannot open cache database %s", path)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cannot initialize cache schema")
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Get retrieves the payload for key if a non-expired entry exists.
// Expired rows are filtered here and left for the sweep to reclaim.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache get %s", key)
	}
	return payload, true, nil
}

// Set upserts the entry with expiration now+ttl. Last write wins.
func (s *SQLiteStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Unix()
	return s.writeRetry(ctx, "cache set", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO cache_entries (key, payload, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
			key, payload, expiresAt)
		return err
	})
}

// Remove deletes a single entry. Absent keys are not an error.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	return s.writeRetry(ctx, "cache remove", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return err
	})
}

// SweepExpired deletes all expired entries in a single statement and
// returns the count removed.
func (s *SQLiteStore) SweepExpired(ctx context.Context) (int, error) {
	var removed int64
	err := s.writeRetry(ctx, "cache sweep", func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().Unix())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// Count returns the total number of rows and how many are expired.
func (s *SQLiteStore) Count(ctx context.Context) (int, int, error) {
	var total, expired int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries`).Scan(&total); err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache count")
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE expires_at <= ?`,
		time.Now().Unix()).Scan(&expired); err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache count")
	}
	return total, expired, nil
}

// Clear removes every entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.writeRetry(ctx, "cache clear", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
		return err
	})
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// writeRetry runs fn, retrying transient busy conditions a bounded
// number of times with exponential backoff. Non-transient errors
// propagate immediately.
func (s *SQLiteStore) writeRetry(ctx context.Context, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = busyInitialDelay
	bo.MaxInterval = busyMaxDelay

	err := backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isBusy(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, busyRetries), ctx))

	switch {
	case err == nil:
		return nil
	case isBusy(err):
		return apperrors.Wrap(apperrors.ErrCodeStorageExhausted, err, "%s: storage busy after %d retries", op, busyRetries)
	default:
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "%s failed", op)
	}
}

// isBusy reports whether err is a transient SQLITE_BUSY/locked
// condition worth retrying.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// Ensure SQLiteStore implements Store and the diagnostics interfaces.
var (
	_ Store   = (*SQLiteStore)(nil)
	_ Counter = (*SQLiteStore)(nil)
	_ Clearer = (*SQLiteStore)(nil)
)
