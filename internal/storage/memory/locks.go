package memory

import (
	"context"

	"github.com/google/uuid"

	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// AcquireLock implements storage.LockService. Returns nil, nil on
// contention rather than an error, matching the spec's "None on
// contention" contract.
func (s *Store) AcquireLock(_ context.Context, key string, ttlSeconds int) (*storage.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[key]; held {
		return nil, nil
	}
	token := uuid.NewString()
	s.locks[key] = lockState{token: token}
	return &storage.Lease{Token: token, TTLSeconds: ttlSeconds}, nil
}

func (s *Store) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.locks[key]
	if !ok || ls.token != token {
		return false, nil
	}
	delete(s.locks, key)
	return true, nil
}

func (s *Store) ExtendLock(_ context.Context, key, token string, _ int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.locks[key]
	if !ok || ls.token != token {
		return false, nil
	}
	return true, nil
}

func (s *Store) CheckLockExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.locks[key]
	return ok, nil
}

func (s *Store) RecordJobCompletion(_ context.Context, job string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completedJobs == nil {
		s.completedJobs = make(map[string]struct{})
	}
	s.completedJobs[job] = struct{}{}
	return nil
}

func (s *Store) CheckJobRecentlyCompleted(_ context.Context, job string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.completedJobs[job]
	return ok, nil
}

func (s *Store) SaveJobCheckpoint(_ context.Context, job string, partial []byte, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpoints == nil {
		s.checkpoints = make(map[string][]byte)
	}
	s.checkpoints[job] = append([]byte(nil), partial...)
	return nil
}

func (s *Store) GetJobCheckpoint(_ context.Context, job string, _ model.TenantContext) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.checkpoints[job]
	return v, ok, nil
}

func (s *Store) DeleteJobCheckpoint(_ context.Context, job string, _ model.TenantContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, job)
	return nil
}

var _ storage.LockService = (*Store)(nil)
