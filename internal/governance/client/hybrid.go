package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"aeterna/internal/governance"
	"aeterna/internal/model"
)

// Validate implements the Hybrid contract's validate: always consult
// the local engine; enqueue a PendingChange for eventual replay; return
// the local result. Local and Hybrid both require an engine; Remote
// has none and validates by delegating the enqueue-only semantics
// against its own state (no local opinion to return, so it validates
// optimistically and relies entirely on eventual remote replay).
func (c *HybridClient) Validate(_ context.Context, tenant model.TenantContext, layer model.Layer, evalCtx governance.EvaluationContext) (model.ValidationResult, error) {
	var result model.ValidationResult
	if c.engine != nil {
		result = c.engine.ValidateWithContext(context.Background(), layer, evalCtx)
	} else {
		result = model.ValidationResult{IsValid: true}
	}

	c.mu.Lock()
	c.pending = append(c.pending, PendingChange{
		Kind:     ChangePolicyUpdate,
		Context:  evalCtx,
		Result:   result,
		State:    StateQueued,
		QueuedAt: time.Now().UnixMilli(),
	})
	c.mu.Unlock()

	_ = tenant // tenant scoping applies to the cache/storage reads below, not to the in-process engine call
	return result, nil
}

// GetDriftStatus implements get_drift_status: serve from cache when
// fresh; else ask remote; on remote failure, fall back to local
// storage; if no storage, return nil.
func (c *HybridClient) GetDriftStatus(ctx context.Context, tenant model.TenantContext, projectID string) (*model.DriftResult, error) {
	key := cacheKey(tenant, "drift:"+projectID)
	if entry, ok := c.cache.get(key); ok && entry.driftResult != nil {
		return entry.driftResult, nil
	}

	if c.remote != nil {
		result, err := c.remote.GetDriftStatus(ctx, tenant, projectID)
		if err == nil {
			if result != nil {
				c.cache.put(key, cacheEntry{driftResult: result})
			}
			return result, nil
		}
		c.logger.Warn("remote drift status failed, falling back to local storage", zap.Error(err))
	}

	if c.backend != nil {
		result, err := c.backend.GetLatestDriftResult(ctx, tenant, projectID)
		if err != nil {
			return nil, err
		}
		if result != nil {
			c.cache.put(key, cacheEntry{driftResult: result})
		}
		return result, nil
	}

	return nil, nil
}

// ListProposals implements list_proposals with a cache-then-remote
// lookup, filtered by layer when layer is non-empty. Unlike
// GetDriftStatus it has no local-storage fallback: when the remote is
// absent or fails, it returns no proposals.
func (c *HybridClient) ListProposals(ctx context.Context, tenant model.TenantContext, layer model.Layer) ([]Proposal, error) {
	key := cacheKey(tenant, "proposals:"+string(layer))
	if entry, ok := c.cache.get(key); ok {
		return filterProposalsByLayer(entry.proposals, layer), nil
	}

	if c.remote != nil {
		proposals, err := c.remote.ListProposals(ctx, tenant, layer)
		if err == nil {
			c.cache.put(key, cacheEntry{proposals: proposals})
			return filterProposalsByLayer(proposals, layer), nil
		}
		c.logger.Warn("remote list_proposals failed, falling back to local storage", zap.Error(err))
	}

	// This reference client has no local-storage-backed proposal
	// source (spec.md leaves proposal persistence unspecified); the
	// storage fallback degrades to "no proposals known locally".
	return nil, nil
}

func filterProposalsByLayer(proposals []Proposal, layer model.Layer) []Proposal {
	if layer == "" {
		return proposals
	}
	out := make([]Proposal, 0, len(proposals))
	for _, p := range proposals {
		if p.Layer == layer {
			out = append(out, p)
		}
	}
	return out
}

// ReplayEvents implements replay_events: forward to remote only, no
// local fallback.
func (c *HybridClient) ReplayEvents(ctx context.Context, tenant model.TenantContext, sinceTimestamp int64) ([]model.GovernanceEvent, error) {
	if c.remote == nil {
		return nil, nil
	}
	return c.remote.ReplayEvents(ctx, tenant, sinceTimestamp)
}

// SyncPendingChanges implements sync_pending_changes: drain the queue
// under the writer lock only while snapshotting it, release before any
// network call, POST each change, and re-queue on per-item failure.
// local_version advances once per successfully-synced item, and
// last_sync_timestamp updates whenever at least one item synced this
// call, independent of any other item's failure in the same batch
// (_examples/original_source/knowledge/src/governance_client.rs:164-185).
func (c *HybridClient) SyncPendingChanges(ctx context.Context) error {
	if c.remote == nil {
		return nil
	}

	c.mu.Lock()
	snapshot := c.pending
	c.pending = nil
	c.mu.Unlock()

	var retained []PendingChange
	var synced int
	for _, change := range snapshot {
		if err := c.remote.PushPendingChange(ctx, change); err != nil {
			change.State = StateRetained
			retained = append(retained, change)
			continue
		}
		change.State = StateAcked
		synced++
	}

	c.mu.Lock()
	c.pending = append(retained, c.pending...)
	if synced > 0 {
		c.localVersion += int64(synced)
		c.lastSyncTimestamp = time.Now().UnixMilli()
	}
	c.mu.Unlock()

	return nil
}

// PendingCount reports the number of changes currently queued, for
// observability.
func (c *HybridClient) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
