// Package model defines the shared data types of the platform: tenant
// context, memory layers, summaries, assembled context, policies, drift
// results, and trajectory events. It has no behavior of its own beyond
// small, pure helper methods — every subsystem package depends on it.
package model

import "fmt"

// TenantContext is the tuple that scopes every storage, cache, and
// pub/sub operation. It is immutable once constructed.
type TenantContext struct {
	TenantID  string
	UserID    string
	OrgID     string // optional
	TeamID    string // optional
	ProjectID string // optional
	SessionID string // optional
}

// NewTenantContext constructs a TenantContext, requiring the two
// mandatory fields.
func NewTenantContext(tenantID, userID string) TenantContext {
	return TenantContext{TenantID: tenantID, UserID: userID}
}

// CacheKeyPrefix returns the tenant-scoped prefix every cache/storage
// key derived from this context must carry.
func (t TenantContext) CacheKeyPrefix() string {
	return fmt.Sprintf("%s:%s", t.TenantID, t.UserID)
}

// SameTenant reports whether other belongs to the same tenant. This is
// the isolation check every storage/cache/pub-sub operation must pass
// before touching a record; a mismatch is a hard failure, not a filter.
func (t TenantContext) SameTenant(recordTenantID string) bool {
	return t.TenantID != "" && t.TenantID == recordTenantID
}
