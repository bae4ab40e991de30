package model

// PolicyMode controls whether a policy's absence contributes to drift.
type PolicyMode string

const (
	PolicyMandatory PolicyMode = "mandatory"
	PolicyOptional  PolicyMode = "optional"
)

// RuleType is Allow or Deny.
type RuleType string

const (
	RuleAllow RuleType = "allow"
	RuleDeny  RuleType = "deny"
)

// RuleTarget is the kind of field a rule inspects.
type RuleTarget string

const (
	TargetDependency RuleTarget = "dependency"
	TargetFile       RuleTarget = "file"
	TargetCode       RuleTarget = "code"
	TargetConfig     RuleTarget = "config"
)

// RuleOperator is the comparison a rule performs against its target.
type RuleOperator string

const (
	OpMustExist     RuleOperator = "must_exist"
	OpMustUse       RuleOperator = "must_use"
	OpMustNotUse    RuleOperator = "must_not_use"
	OpMustMatch     RuleOperator = "must_match"
	OpMustNotMatch  RuleOperator = "must_not_match"
)

// Severity ranks a violation's weight in the drift score.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
	SeverityBlock Severity = "block"
)

// SeverityWeight returns the drift-score contribution of a severity,
// per spec: Block=1.0, Error=0.7, Warn=0.5, Info=0.1.
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityBlock:
		return 1.0
	case SeverityError:
		return 0.7
	case SeverityWarn:
		return 0.5
	case SeverityInfo:
		return 0.1
	default:
		return 0.0
	}
}

// Rule is a single evaluable condition within a Policy.
type Rule struct {
	ID       string
	RuleType RuleType
	Target   RuleTarget
	Operator RuleOperator
	Value    string
	Severity Severity
	Message  string

	// SemanticQuery is additive: when non-empty, the Governance Engine's
	// optional semantic pass compiles it into a small mangle program and
	// evaluates it against the evaluation context's facts, in addition
	// to the rule-based operator check above. See DESIGN.md for the
	// resolution of spec.md §9's open question on the marker format.
	SemanticQuery string
}

// Policy groups rules under an enforcement mode.
type Policy struct {
	ID            string
	Name          string
	Layer         Layer
	Mode          PolicyMode
	MergeStrategy string
	Rules         []Rule
	Metadata      map[string]string
}

// Violation is the result of a failing Allow rule or succeeding Deny
// rule.
type Violation struct {
	PolicyID string
	RuleID   string
	Severity Severity
	Message  string
}

// DriftResult is the bounded drift score computed for a project.
type DriftResult struct {
	ProjectID           string
	DriftScore          float64 // clamped to [0,1]
	Violations          []Violation
	SuppressedViolations []Violation
	Timestamp           int64
	// IsSignificant is additive (see SPEC_FULL.md §3.1): true when
	// DriftScore is at or above the project's DriftConfig.LowConfidenceThreshold.
	IsSignificant bool
}

// DriftConfig controls suppression and thresholds for a project's
// drift checks. Matches the persisted wire format in spec.md §6.
type DriftConfig struct {
	ProjectID              string
	TenantID               string
	Threshold              float64
	LowConfidenceThreshold float64
	AutoSuppressInfo       bool
	UpdatedAt              int64
}

// ValidationResult is returned by validate_with_context.
type ValidationResult struct {
	IsValid          bool
	Violations       []Violation
	IsMandatoryLayer bool
}
