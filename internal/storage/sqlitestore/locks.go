package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// AcquireLock implements storage.LockService. Expired rows are swept
// lazily on every acquire attempt rather than via a background sweeper,
// matching the Budget Tracker's lazy-rollover-on-read idiom.
func (s *Store) AcquireLock(_ context.Context, key string, ttlSeconds int) (*storage.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	if _, err := s.db.Exec(`DELETE FROM locks WHERE key = ? AND expires_at < ?`, key, now); err != nil {
		return nil, err
	}

	var existing string
	err := s.db.QueryRow(`SELECT token FROM locks WHERE key = ?`, key).Scan(&existing)
	if err == nil {
		return nil, nil // held, per the "nil, nil on contention" contract
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	token := uuid.NewString()
	_, err = s.db.Exec(`INSERT INTO locks (key, token, expires_at) VALUES (?, ?, ?)`, key, token, now+int64(ttlSeconds))
	if err != nil {
		return nil, err
	}
	return &storage.Lease{Token: token, TTLSeconds: ttlSeconds}, nil
}

func (s *Store) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM locks WHERE key = ? AND token = ?`, key, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ExtendLock(_ context.Context, key, token string, newTTLSeconds int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE locks SET expires_at = ? WHERE key = ? AND token = ?`,
		time.Now().Unix()+int64(newTTLSeconds), key, token,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) CheckLockExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM locks WHERE key = ? AND expires_at >= ?`, key, time.Now().Unix()).Scan(&count)
	return count > 0, err
}

func (s *Store) RecordJobCompletion(_ context.Context, job string, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO completed_jobs (job, expires_at) VALUES (?, ?)
		 ON CONFLICT(job) DO UPDATE SET expires_at = excluded.expires_at`,
		job, time.Now().Unix()+int64(ttlSeconds),
	)
	return err
}

func (s *Store) CheckJobRecentlyCompleted(_ context.Context, job string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM completed_jobs WHERE job = ? AND expires_at >= ?`, job, time.Now().Unix()).Scan(&count)
	return count > 0, err
}

func (s *Store) SaveJobCheckpoint(_ context.Context, job string, partial []byte, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO job_checkpoints (job, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(job) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		job, partial, time.Now().Unix()+int64(ttlSeconds),
	)
	return err
}

func (s *Store) GetJobCheckpoint(_ context.Context, job string, _ model.TenantContext) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM job_checkpoints WHERE job = ? AND expires_at >= ?`, job, time.Now().Unix()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Store) DeleteJobCheckpoint(_ context.Context, job string, _ model.TenantContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM job_checkpoints WHERE job = ?`, job)
	return err
}

var _ storage.LockService = (*Store)(nil)
