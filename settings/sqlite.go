package settings

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type entryKey struct {
	namespace string
	key       string
}

// SQLiteStorage stores one row per (namespace, key). Values are staged in
// memory on Set and upserted on Persist.
type SQLiteStorage struct {
	mu     sync.Mutex
	db     *sql.DB
	doc    document
	dirty  map[entryKey]struct{}
	closed bool
	logger *zap.Logger
}

// NewSQLiteStorage creates/opens the settings database at path.
func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer; one shared connection avoids SQLITE_BUSY between goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{
		db:     db,
		doc:    document{},
		dirty:  make(map[entryKey]struct{}),
		logger: logger,
	}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.loadAll(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS settings (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value_json TEXT NOT NULL,
			updated_at_ms INTEGER NOT NULL,
			PRIMARY KEY (namespace, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init settings db: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) loadAll() error {
	rows, err := s.db.Query(`SELECT namespace, key, value_json FROM settings`)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ns, key, value string
		if err := rows.Scan(&ns, &key, &value); err != nil {
			return fmt.Errorf("scan settings row: %w", err)
		}
		bucket, ok := s.doc[ns]
		if !ok {
			bucket = make(map[string]json.RawMessage)
			s.doc[ns] = bucket
		}
		bucket[key] = json.RawMessage(value)
	}
	return rows.Err()
}

func (s *SQLiteStorage) Get(namespace, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	raw, ok := s.doc.get(namespace, key)
	return raw, ok, nil
}

func (s *SQLiteStorage) Set(namespace, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.doc.set(namespace, key, value); err != nil {
		return err
	}
	s.dirty[entryKey{namespace: namespace, key: key}] = struct{}{}
	return nil
}

// Persist upserts staged rows. Failures are logged; the rows stay dirty and
// are retried on the next Persist.
func (s *SQLiteStorage) Persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.flushLocked(); err != nil {
		s.logger.Error("persist settings", zap.Error(err))
	}
}

// Close flushes staged rows and closes the database.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.flushLocked()
	if err := s.db.Close(); err != nil {
		return err
	}
	return flushErr
}

func (s *SQLiteStorage) flushLocked() error {
	if len(s.dirty) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	now := time.Now().UnixMilli()
	for k := range s.dirty {
		raw, _ := s.doc.get(k.namespace, k.key)
		if _, err := tx.Exec(`INSERT INTO settings (namespace, key, value_json, updated_at_ms)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET value_json = excluded.value_json, updated_at_ms = excluded.updated_at_ms`,
			k.namespace, k.key, string(raw), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert setting %s/%s: %w", k.namespace, k.key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings tx: %w", err)
	}
	s.dirty = make(map[entryKey]struct{})
	return nil
}
