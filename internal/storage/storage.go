// Package storage defines the external collaborator contracts of
// spec.md §6: Storage Backend, Lock & Checkpoint Service, Event
// Publisher, and Graph Store. The CORE depends only on these
// interfaces; concrete drivers (SQL, key-value, object store) are
// non-CORE plumbing, grounded per-adapter in the subpackages below.
package storage

import (
	"context"

	"aeterna/internal/model"
)

// Backend is the key-value + object persistence contract, extended
// with the governance- and trajectory-specific operations spec.md §6
// groups under it. The keyed blob operations (Store, Retrieve, Delete,
// Exists) reject a key owned by another tenant with a
// TenantViolationError rather than silently filtering;
// GetLatestDriftResult and GetGovernanceEvents return only the given
// tenant's records, and SaveDriftConfig takes its tenant from
// cfg.TenantID. PersistEvents and LoadEvents are keyed by session ID
// alone and carry no TenantContext.
type Backend interface {
	Store(ctx context.Context, tenant model.TenantContext, key string, value []byte) error
	Retrieve(ctx context.Context, tenant model.TenantContext, key string) ([]byte, bool, error)
	Delete(ctx context.Context, tenant model.TenantContext, key string) error
	Exists(ctx context.Context, tenant model.TenantContext, key string) (bool, error)

	GetLatestDriftResult(ctx context.Context, tenant model.TenantContext, projectID string) (*model.DriftResult, error)
	SaveDriftConfig(ctx context.Context, cfg model.DriftConfig) error
	GetGovernanceEvents(ctx context.Context, tenant model.TenantContext, since int64, limit int) ([]model.GovernanceEvent, error)

	PersistEvents(ctx context.Context, sessionID string, batch []model.TrajectoryEvent) error
	LoadEvents(ctx context.Context, sessionID string) ([]model.TrajectoryEvent, error)
}

// Lease is returned by AcquireLock on success.
type Lease struct {
	Token     string
	TTLSeconds int
}

// LockService is the Lock & Checkpoint Service contract.
type LockService interface {
	AcquireLock(ctx context.Context, key string, ttlSeconds int) (*Lease, error) // nil, nil on contention
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	ExtendLock(ctx context.Context, key, token string, newTTLSeconds int) (bool, error)
	CheckLockExists(ctx context.Context, key string) (bool, error)

	RecordJobCompletion(ctx context.Context, job string, ttlSeconds int) error
	CheckJobRecentlyCompleted(ctx context.Context, job string) (bool, error)

	SaveJobCheckpoint(ctx context.Context, job string, partial []byte, ttlSeconds int) error
	GetJobCheckpoint(ctx context.Context, job string, tenant model.TenantContext) ([]byte, bool, error)
	DeleteJobCheckpoint(ctx context.Context, job string, tenant model.TenantContext) error
}

// EventReceiver yields deserialized governance events in arrival
// order. Calling Close detaches the subscription.
type EventReceiver interface {
	Recv(ctx context.Context) (model.GovernanceEvent, bool, error)
	Close()
}

// EventPublisher is the fire-and-forget, at-least-once event bus
// contract.
type EventPublisher interface {
	Publish(ctx context.Context, event model.GovernanceEvent) error
	Subscribe(ctx context.Context, streamKeys []string) (EventReceiver, error)
}

// GraphNeighbor pairs an edge with the node it leads to.
type GraphNeighbor struct {
	Edge model.GraphEdge
	Node model.GraphNode
}

// Community is a connected component of related nodes, as produced by
// DetectCommunities (SPEC_FULL.md §4.10).
type Community struct {
	NodeIDs []string
}

// GraphStore is the Graph Store contract. Tenant checks are by exact
// string match on the embedded tenant_id field vs. the context;
// mismatches are hard failures, not filters.
type GraphStore interface {
	AddNode(ctx context.Context, node model.GraphNode) error
	AddEdge(ctx context.Context, edge model.GraphEdge) error // ReferentialIntegrityError if either endpoint is missing
	GetNeighbors(ctx context.Context, tenant model.TenantContext, id string) ([]GraphNeighbor, error)
	FindPath(ctx context.Context, tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error)
	ShortestPath(ctx context.Context, tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error)
	DetectCommunities(ctx context.Context, tenant model.TenantContext, minSize int) ([]Community, error)
}
