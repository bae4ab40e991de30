// Package memory implements an in-memory reference adapter for every
// interface in internal/storage, for tests and the CLI's default
// storage when --db-path is empty. Grounded on the teacher's internal/store.LocalStore shape
// (mutex-guarded maps, the same lock discipline used for its SQLite
// tables) with the on-disk driver removed.
package memory

import (
	"context"
	"sync"

	"aeterna/internal/errors"
	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// Store is a mutex-guarded, process-local implementation of
// storage.Backend, storage.LockService, storage.EventPublisher, and
// storage.GraphStore.
type Store struct {
	mu sync.RWMutex

	blobs map[string][]byte
	blobTenant map[string]string

	driftResults map[string]model.DriftResult // key: tenant:project
	driftConfigs map[string]model.DriftConfig
	govEvents    []model.GovernanceEvent

	trajectory map[string][]model.TrajectoryEvent

	locks map[string]lockState
	completedJobs map[string]struct{}
	checkpoints   map[string][]byte

	nodes map[string]model.GraphNode
	edges []model.GraphEdge

	subscribers []*receiver
}

type lockState struct {
	token string
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		blobs:        make(map[string][]byte),
		blobTenant:   make(map[string]string),
		driftResults: make(map[string]model.DriftResult),
		driftConfigs: make(map[string]model.DriftConfig),
		trajectory:   make(map[string][]model.TrajectoryEvent),
		locks:        make(map[string]lockState),
		nodes:        make(map[string]model.GraphNode),
	}
}

func driftKey(tenantID, projectID string) string { return tenantID + ":" + projectID }

// Store implements storage.Backend.
func (s *Store) Store(_ context.Context, tenant model.TenantContext, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingTenant, ok := s.blobTenant[key]; ok && existingTenant != tenant.TenantID {
		return &errors.TenantViolationError{ExpectedTenant: existingTenant, ActualTenant: tenant.TenantID, Resource: key}
	}
	s.blobs[key] = append([]byte(nil), value...)
	s.blobTenant[key] = tenant.TenantID
	return nil
}

func (s *Store) Retrieve(_ context.Context, tenant model.TenantContext, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	if owner := s.blobTenant[key]; owner != tenant.TenantID {
		return nil, false, &errors.TenantViolationError{ExpectedTenant: owner, ActualTenant: tenant.TenantID, Resource: key}
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Delete(_ context.Context, tenant model.TenantContext, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.blobTenant[key]; ok && owner != tenant.TenantID {
		return &errors.TenantViolationError{ExpectedTenant: owner, ActualTenant: tenant.TenantID, Resource: key}
	}
	delete(s.blobs, key)
	delete(s.blobTenant, key)
	return nil
}

func (s *Store) Exists(_ context.Context, tenant model.TenantContext, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[key]; !ok {
		return false, nil
	}
	if owner := s.blobTenant[key]; owner != tenant.TenantID {
		return false, &errors.TenantViolationError{ExpectedTenant: owner, ActualTenant: tenant.TenantID, Resource: key}
	}
	return true, nil
}

func (s *Store) GetLatestDriftResult(_ context.Context, tenant model.TenantContext, projectID string) (*model.DriftResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.driftResults[driftKey(tenant.TenantID, projectID)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// SaveLatestDriftResult is additional surface (not in the narrower
// storage.Backend contract) used by the governance engine directly
// when persisting a freshly computed DriftResult. Returns error to
// match sqlitestore.Store's signature, so both adapters satisfy the
// same assertion in governance.persistDrift.
func (s *Store) SaveLatestDriftResult(tenant model.TenantContext, result model.DriftResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driftResults[driftKey(tenant.TenantID, result.ProjectID)] = result
	return nil
}

func (s *Store) SaveDriftConfig(_ context.Context, cfg model.DriftConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driftConfigs[driftKey(cfg.TenantID, cfg.ProjectID)] = cfg
	return nil
}

func (s *Store) DriftConfig(tenantID, projectID string) (model.DriftConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.driftConfigs[driftKey(tenantID, projectID)]
	return cfg, ok
}

func (s *Store) GetGovernanceEvents(_ context.Context, tenant model.TenantContext, since int64, limit int) ([]model.GovernanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.GovernanceEvent, 0, limit)
	for _, e := range s.govEvents {
		if e.Timestamp < since {
			continue
		}
		var owner string
		switch {
		case e.DriftDetected != nil:
			owner = e.DriftDetected.TenantID
		case e.UnitCreated != nil:
			owner = e.UnitCreated.TenantID
		case e.RoleAssigned != nil:
			owner = e.RoleAssigned.TenantID
		case e.PolicyUpdated != nil:
			owner = e.PolicyUpdated.TenantID
		}
		if owner != tenant.TenantID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) PersistEvents(_ context.Context, sessionID string, batch []model.TrajectoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trajectory[sessionID] = append(s.trajectory[sessionID], batch...)
	return nil
}

func (s *Store) LoadEvents(_ context.Context, sessionID string) ([]model.TrajectoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.TrajectoryEvent(nil), s.trajectory[sessionID]...)
	return out, nil
}

var _ storage.Backend = (*Store)(nil)
