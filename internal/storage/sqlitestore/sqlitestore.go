// Package sqlitestore is a SQLite-backed reference implementation of
// internal/storage's interfaces, for deployments that want durability
// without standing up a separate database service. Grounded on the
// teacher's internal/store.LocalStore: same PRAGMA tuning, same
// single-connection-pool discipline, same mutex-around-exec pattern.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"aeterna/internal/errors"
	"aeterna/internal/logging"
	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// Store is a SQLite-backed storage.Backend, storage.LockService, and
// storage.GraphStore.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// Open initializes a SQLite database at path, creating its directory
// and schema if needed. Pragmas mirror the teacher's LocalStore: a
// single connection (SQLite's writer serialization makes a pool
// counterproductive), WAL journaling, NORMAL synchronous durability.
func Open(path string, logger *zap.Logger) (*Store, error) {
	l := logging.Component(logger, "sqlitestore")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			l.Warn("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, logger: l}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blobs (
			key TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			value BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drift_results (
			tenant_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			drift_score REAL NOT NULL,
			violations TEXT NOT NULL,
			suppressed_violations TEXT NOT NULL,
			is_significant INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			PRIMARY KEY (tenant_id, project_id)
		)`,
		`CREATE TABLE IF NOT EXISTS drift_configs (
			tenant_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			threshold REAL NOT NULL,
			low_confidence_threshold REAL NOT NULL,
			auto_suppress_info INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (tenant_id, project_id)
		)`,
		`CREATE TABLE IF NOT EXISTS governance_events (
			tenant_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trajectory_events (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS locks (
			key TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS completed_jobs (
			job TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS job_checkpoints (
			job TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			labels TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			relation TEXT NOT NULL,
			weight REAL NOT NULL,
			FOREIGN KEY (from_id) REFERENCES graph_nodes(id),
			FOREIGN KEY (to_id) REFERENCES graph_nodes(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_from ON graph_edges(from_id, tenant_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// Store implements storage.Backend.
func (s *Store) Store(_ context.Context, tenant model.TenantContext, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owner string
	err := s.db.QueryRow(`SELECT tenant_id FROM blobs WHERE key = ?`, key).Scan(&owner)
	if err == nil && owner != tenant.TenantID {
		return &errors.TenantViolationError{ExpectedTenant: owner, ActualTenant: tenant.TenantID, Resource: key}
	}

	_, execErr := s.db.Exec(
		`INSERT INTO blobs (key, tenant_id, value) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, tenant.TenantID, value,
	)
	return execErr
}

func (s *Store) Retrieve(_ context.Context, tenant model.TenantContext, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owner string
	var value []byte
	err := s.db.QueryRow(`SELECT tenant_id, value FROM blobs WHERE key = ?`, key).Scan(&owner, &value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if owner != tenant.TenantID {
		return nil, false, &errors.TenantViolationError{ExpectedTenant: owner, ActualTenant: tenant.TenantID, Resource: key}
	}
	return value, true, nil
}

func (s *Store) Delete(_ context.Context, tenant model.TenantContext, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owner string
	err := s.db.QueryRow(`SELECT tenant_id FROM blobs WHERE key = ?`, key).Scan(&owner)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != tenant.TenantID {
		return &errors.TenantViolationError{ExpectedTenant: owner, ActualTenant: tenant.TenantID, Resource: key}
	}
	_, execErr := s.db.Exec(`DELETE FROM blobs WHERE key = ?`, key)
	return execErr
}

func (s *Store) Exists(_ context.Context, tenant model.TenantContext, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owner string
	err := s.db.QueryRow(`SELECT tenant_id FROM blobs WHERE key = ?`, key).Scan(&owner)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if owner != tenant.TenantID {
		return false, &errors.TenantViolationError{ExpectedTenant: owner, ActualTenant: tenant.TenantID, Resource: key}
	}
	return true, nil
}

var _ storage.Backend = (*Store)(nil)
