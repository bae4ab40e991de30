package model

// GovernanceEventType discriminates the GovernanceEvent tagged union.
// The string values are the stable JSON "type" discriminator (spec.md §6).
type GovernanceEventType string

const (
	EventDriftDetected GovernanceEventType = "DriftDetected"
	EventUnitCreated    GovernanceEventType = "UnitCreated"
	EventRoleAssigned   GovernanceEventType = "RoleAssigned"
	EventPolicyUpdated  GovernanceEventType = "PolicyUpdated"
)

// GovernanceEvent is published to the Event Publisher (spec.md §6) and
// replayed by the Hybrid Governance Client. Exactly one of the payload
// fields is populated, selected by Type.
type GovernanceEvent struct {
	Type      GovernanceEventType
	Timestamp int64

	DriftDetected *DriftDetectedPayload
	UnitCreated   *UnitCreatedPayload
	RoleAssigned  *RoleAssignedPayload
	PolicyUpdated *PolicyUpdatedPayload
}

type DriftDetectedPayload struct {
	ProjectID  string
	TenantID   string
	DriftScore float64
}

type UnitCreatedPayload struct {
	TenantID string
	UnitID   string
	UnitType string
}

type RoleAssignedPayload struct {
	TenantID string
	UserID   string
	Role     Role
}

type PolicyUpdatedPayload struct {
	TenantID string
	PolicyID string
	Version  string
}

// Role, ApprovalRequest, and ApprovalDecision are storage-only artifacts
// per spec.md §3 — the CORE persists and references them but contains
// no approval workflow logic. Shapes follow original_source/cli/src/
// commands/admin.rs and user.rs (see SPEC_FULL.md §3.2).
type Role struct {
	ID          string
	Name        string
	Permissions []string
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type ApprovalRequest struct {
	ID          string
	RequestedBy string
	Resource    string
	Action      string
	Status      ApprovalStatus
	CreatedAt   int64
}

type ApprovalDecision struct {
	RequestID string
	DecidedBy string
	Approved  bool
	Reason    string
	DecidedAt int64
}
