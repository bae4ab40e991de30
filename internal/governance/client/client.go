// Package client implements the Hybrid Governance Client (C9): a
// thin facade over the local Governance Engine and an optional remote
// governance service, with a tenant-scoped read cache and a
// replay-on-reconnect queue for mutations made while offline.
package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"aeterna/internal/config"
	"aeterna/internal/governance"
	"aeterna/internal/logging"
	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// Kind selects which collaborators a Client consults.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
	KindHybrid Kind = "hybrid"
)

// PendingChangeState is the state-machine position of a queued mutation.
type PendingChangeState string

const (
	StateQueued   PendingChangeState = "queued"
	StateAcked    PendingChangeState = "acked"
	StateRetained PendingChangeState = "retained"
)

// PendingChangeKind discriminates what a PendingChange replays.
type PendingChangeKind string

const (
	ChangePolicyUpdate PendingChangeKind = "policy_update"
)

// PendingChange is a queued mutation awaiting remote replay.
type PendingChange struct {
	Kind      PendingChangeKind
	Context   governance.EvaluationContext
	Result    model.ValidationResult
	State     PendingChangeState
	QueuedAt  int64
}

// Proposal is a candidate policy change surfaced by list_proposals.
// Fields mirror what a remote governance service would serve; this
// reference client only ever returns proposals sourced from the cache,
// the remote, or (as a fallback) nothing, per spec.md §4.9.
type Proposal struct {
	ID    string
	Layer model.Layer
	Title string
	Body  string
}

// Client is the Hybrid Governance Client contract (spec.md §4.9).
type Client interface {
	Validate(ctx context.Context, tenant model.TenantContext, layer model.Layer, evalCtx governance.EvaluationContext) (model.ValidationResult, error)
	GetDriftStatus(ctx context.Context, tenant model.TenantContext, projectID string) (*model.DriftResult, error)
	ListProposals(ctx context.Context, tenant model.TenantContext, layer model.Layer) ([]Proposal, error)
	ReplayEvents(ctx context.Context, tenant model.TenantContext, sinceTimestamp int64) ([]model.GovernanceEvent, error)
	SyncPendingChanges(ctx context.Context) error
}

// cacheKey builds the tenant-scoped key spec.md §4.9 requires:
// "tenant_id:user_id:suffix".
func cacheKey(tenant model.TenantContext, suffix string) string {
	return tenant.CacheKeyPrefix() + ":" + suffix
}

type cacheEntry struct {
	driftResult *model.DriftResult
	proposals   []Proposal
	insertedAt  time.Time
}

// ttlCache is a small tenant-scoped read cache shared by GetDriftStatus
// and ListProposals. Guarded by a single mutex since hit rates are low
// enough that lock contention is not a concern (mirrors the Assembler's
// own cache, minus its sweep of expired entries on a miss, since entries
// are few and TTL-bound).
type ttlCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newTTLCache(ttlSeconds int) *ttlCache {
	return &ttlCache{entries: make(map[string]cacheEntry), ttl: time.Duration(ttlSeconds) * time.Second}
}

func (c *ttlCache) get(key string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Since(e.insertedAt) > c.ttl {
		return cacheEntry{}, false
	}
	return e, true
}

func (c *ttlCache) put(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.insertedAt = time.Now()
	c.entries[key] = e
}

// remoteAPI is the subset of RemoteClient's surface HybridClient
// depends on, narrowed to an interface so tests can substitute a fake
// instead of a live HTTP server.
type remoteAPI interface {
	GetDriftStatus(ctx context.Context, tenant model.TenantContext, projectID string) (*model.DriftResult, error)
	ListProposals(ctx context.Context, tenant model.TenantContext, layer model.Layer) ([]Proposal, error)
	ReplayEvents(ctx context.Context, tenant model.TenantContext, sinceTimestamp int64) ([]model.GovernanceEvent, error)
	PushPendingChange(ctx context.Context, change PendingChange) error
}

// HybridClient implements Client for all three Kinds; the Kind
// determines which of engine/remote are consulted at each call site.
type HybridClient struct {
	kind    Kind
	engine  *governance.Engine
	remote  remoteAPI
	backend storage.Backend
	cfg     config.HybridClientConfig
	cache   *ttlCache
	logger  *zap.Logger

	mu      sync.Mutex
	pending []PendingChange

	localVersion      int64
	lastSyncTimestamp int64
}

// New constructs a HybridClient. engine and remote may be nil when
// kind doesn't require them (Local needs no remote, Remote needs no
// engine); backend may always be nil, disabling the local-storage
// fallback.
func New(kind Kind, cfg config.HybridClientConfig, engine *governance.Engine, remote remoteAPI, backend storage.Backend, logger *zap.Logger) *HybridClient {
	return &HybridClient{
		kind:    kind,
		engine:  engine,
		remote:  remote,
		backend: backend,
		cfg:     cfg,
		cache:   newTTLCache(cfg.CacheTTLSeconds),
		logger:  logging.Component(logger, "governance.client"),
	}
}

var _ Client = (*HybridClient)(nil)
