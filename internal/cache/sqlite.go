package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

const renderSchema = `
CREATE TABLE IF NOT EXISTS renders (
    key        TEXT    PRIMARY KEY,
    body       BLOB    NOT NULL,
    created_at INTEGER NOT NULL
);`

// SQLiteStore keeps gzip-compressed entries in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	closed atomic.Bool
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at dataSource.
func OpenSQLite(dataSource string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := openDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(renderSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	var (
		data    []byte
		created int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT body, created_at FROM renders WHERE key = ?", key).Scan(&data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expired(time.Unix(0, created), s.ttl) {
		if err := s.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		s.misses.Add(1)
		return nil, false, nil
	}

	body, err := decompress(data)
	if err != nil {
		s.misses.Add(1)
		return nil, false, err
	}
	s.hits.Add(1)
	return body, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := compress(body)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO renders (key, body, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, created_at = excluded.created_at`,
		key, data, time.Now().UnixNano())
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM renders WHERE key = ?", key)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM renders"); err != nil {
		return err
	}
	s.hits.Store(0)
	s.misses.Store(0)
	return nil
}

func (s *SQLiteStore) Stats() Stats {
	st := Stats{
		Backend: "sqlite",
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
	if s.closed.Load() {
		return st
	}
	_ = s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0) FROM renders").Scan(&st.Entries, &st.Bytes)
	return st
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
