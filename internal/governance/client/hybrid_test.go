package client

import (
	"context"
	"errors"
	"testing"

	"aeterna/internal/config"
	"aeterna/internal/governance"
	"aeterna/internal/model"
	"aeterna/internal/storage/memory"
)

type fakeRemote struct {
	driftResult   *model.DriftResult
	driftErr      error
	proposals     []Proposal
	proposalsErr  error
	events        []model.GovernanceEvent
	pushErr       error
	pushErrs      []error // per-call errors, consumed in order; takes precedence over pushErr
	pushedChanges []PendingChange
}

func (f *fakeRemote) GetDriftStatus(_ context.Context, _ model.TenantContext, _ string) (*model.DriftResult, error) {
	return f.driftResult, f.driftErr
}

func (f *fakeRemote) ListProposals(_ context.Context, _ model.TenantContext, _ model.Layer) ([]Proposal, error) {
	return f.proposals, f.proposalsErr
}

func (f *fakeRemote) ReplayEvents(_ context.Context, _ model.TenantContext, _ int64) ([]model.GovernanceEvent, error) {
	return f.events, nil
}

func (f *fakeRemote) PushPendingChange(_ context.Context, change PendingChange) error {
	if len(f.pushErrs) > 0 {
		err := f.pushErrs[0]
		f.pushErrs = f.pushErrs[1:]
		if err != nil {
			return err
		}
		f.pushedChanges = append(f.pushedChanges, change)
		return nil
	}
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushedChanges = append(f.pushedChanges, change)
	return nil
}

func tenant(id string) model.TenantContext { return model.TenantContext{TenantID: id, UserID: "u1"} }

func TestValidateAlwaysConsultsEngineAndEnqueues(t *testing.T) {
	eng := governance.New(config.DefaultGovernanceConfig(), nil, nil, nil)
	eng.SetPolicies([]model.Policy{{
		ID:    "p1",
		Rules: []model.Rule{{ID: "r1", RuleType: model.RuleAllow, Target: model.TargetDependency, Operator: model.OpMustExist, Severity: model.SeverityWarn}},
	}})
	c := New(KindHybrid, config.DefaultHybridClientConfig(), eng, nil, nil, nil)

	result, err := c.Validate(context.Background(), tenant("t1"), "", governance.EvaluationContext{})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.IsValid {
		t.Fatalf("expected invalid result (dependency missing)")
	}
	if c.PendingCount() != 1 {
		t.Fatalf("expected one pending change queued, got %d", c.PendingCount())
	}
}

func TestGetDriftStatusFallsBackToStorageOnRemoteFailure(t *testing.T) {
	store := memory.New()
	tc := tenant("t1")
	store.SaveLatestDriftResult(tc, model.DriftResult{ProjectID: "proj1", DriftScore: 0.4})

	remote := &fakeRemote{driftErr: errors.New("connection refused")}
	c := New(KindHybrid, config.DefaultHybridClientConfig(), nil, remote, store, nil)

	result, err := c.GetDriftStatus(context.Background(), tc, "proj1")
	if err != nil {
		t.Fatalf("GetDriftStatus: %v", err)
	}
	if result == nil || result.DriftScore != 0.4 {
		t.Fatalf("expected fallback drift result, got %+v", result)
	}
}

func TestGetDriftStatusServesFromCacheOnSecondCall(t *testing.T) {
	remote := &fakeRemote{driftResult: &model.DriftResult{ProjectID: "proj1", DriftScore: 0.2}}
	c := New(KindHybrid, config.DefaultHybridClientConfig(), nil, remote, nil, nil)
	tc := tenant("t1")

	first, err := c.GetDriftStatus(context.Background(), tc, "proj1")
	if err != nil || first == nil {
		t.Fatalf("GetDriftStatus: %v %v", first, err)
	}

	remote.driftResult = nil
	remote.driftErr = errors.New("should not be called")
	second, err := c.GetDriftStatus(context.Background(), tc, "proj1")
	if err != nil {
		t.Fatalf("GetDriftStatus (cached): %v", err)
	}
	if second == nil || second.DriftScore != 0.2 {
		t.Fatalf("expected cached result, got %+v", second)
	}
}

func TestSyncPendingChangesRetainsFailedItems(t *testing.T) {
	remote := &fakeRemote{pushErr: errors.New("unreachable")}
	c := New(KindHybrid, config.DefaultHybridClientConfig(), nil, remote, nil, nil)
	c.mu.Lock()
	c.pending = []PendingChange{{Kind: ChangePolicyUpdate, State: StateQueued}}
	c.mu.Unlock()

	if err := c.SyncPendingChanges(context.Background()); err != nil {
		t.Fatalf("SyncPendingChanges: %v", err)
	}
	if c.PendingCount() != 1 {
		t.Fatalf("expected failed change retained, got %d pending", c.PendingCount())
	}
	if c.localVersion != 0 || c.lastSyncTimestamp != 0 {
		t.Fatalf("expected no version/timestamp advance when nothing synced, got version=%d timestamp=%d", c.localVersion, c.lastSyncTimestamp)
	}
}

func TestSyncPendingChangesClearsOnSuccess(t *testing.T) {
	remote := &fakeRemote{}
	c := New(KindHybrid, config.DefaultHybridClientConfig(), nil, remote, nil, nil)
	c.mu.Lock()
	c.pending = []PendingChange{{Kind: ChangePolicyUpdate, State: StateQueued}}
	c.mu.Unlock()

	if err := c.SyncPendingChanges(context.Background()); err != nil {
		t.Fatalf("SyncPendingChanges: %v", err)
	}
	if c.PendingCount() != 0 {
		t.Fatalf("expected pending queue drained, got %d", c.PendingCount())
	}
	if len(remote.pushedChanges) != 1 {
		t.Fatalf("expected one change pushed to remote, got %d", len(remote.pushedChanges))
	}
	if c.localVersion != 1 {
		t.Fatalf("expected local_version to advance by 1, got %d", c.localVersion)
	}
	if c.lastSyncTimestamp == 0 {
		t.Fatalf("expected last_sync_timestamp to be set")
	}
}

func TestSyncPendingChangesAdvancesVersionPerSuccessfulItemInMixedBatch(t *testing.T) {
	remote := &fakeRemote{pushErrs: []error{nil, errors.New("unreachable"), nil}}
	c := New(KindHybrid, config.DefaultHybridClientConfig(), nil, remote, nil, nil)
	c.mu.Lock()
	c.pending = []PendingChange{
		{Kind: ChangePolicyUpdate, State: StateQueued},
		{Kind: ChangePolicyUpdate, State: StateQueued},
		{Kind: ChangePolicyUpdate, State: StateQueued},
	}
	c.mu.Unlock()

	if err := c.SyncPendingChanges(context.Background()); err != nil {
		t.Fatalf("SyncPendingChanges: %v", err)
	}
	if c.PendingCount() != 1 {
		t.Fatalf("expected one failed item retained, got %d pending", c.PendingCount())
	}
	if len(remote.pushedChanges) != 2 {
		t.Fatalf("expected two changes pushed to remote, got %d", len(remote.pushedChanges))
	}
	if c.localVersion != 2 {
		t.Fatalf("expected local_version to advance once per successfully-synced item (2), got %d", c.localVersion)
	}
	if c.lastSyncTimestamp == 0 {
		t.Fatalf("expected last_sync_timestamp to be set when at least one item synced")
	}
}

func TestListProposalsFiltersByLayer(t *testing.T) {
	remote := &fakeRemote{proposals: []Proposal{
		{ID: "a", Layer: model.LayerProject},
		{ID: "b", Layer: model.LayerTeam},
	}}
	c := New(KindHybrid, config.DefaultHybridClientConfig(), nil, remote, nil, nil)

	proposals, err := c.ListProposals(context.Background(), tenant("t1"), model.LayerProject)
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	if len(proposals) != 1 || proposals[0].ID != "a" {
		t.Fatalf("expected only project-layer proposal, got %+v", proposals)
	}
}
