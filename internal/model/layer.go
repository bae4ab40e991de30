package model

// Layer is an organizational scope. The closed set is fixed; the
// priority ORDER used by the assembler is configuration (see
// config.AssemblerConfig.LayerPriority), not a literal ranking here.
type Layer string

const (
	LayerCompany Layer = "company"
	LayerOrg     Layer = "org"
	LayerTeam    Layer = "team"
	LayerProject Layer = "project"
	LayerSession Layer = "session"
	LayerUser    Layer = "user"
	LayerAgent   Layer = "agent"
)

// AllLayers enumerates the closed set, in no particular priority order.
var AllLayers = []Layer{
	LayerCompany, LayerOrg, LayerTeam, LayerProject, LayerSession, LayerUser, LayerAgent,
}

// DefaultLayerPriority is the default total priority order used by the
// assembler: Session > Project > Team > Org > Company, with User/Agent
// appended. Lower index means higher priority.
var DefaultLayerPriority = []Layer{
	LayerSession, LayerProject, LayerTeam, LayerOrg, LayerCompany, LayerUser, LayerAgent,
}

// IsValid reports whether l is a member of the closed layer set.
func (l Layer) IsValid() bool {
	for _, v := range AllLayers {
		if v == l {
			return true
		}
	}
	return false
}

// Depth is a summary depth. The closed set is fixed; token limits are
// configuration.
type Depth string

const (
	DepthSentence  Depth = "sentence"
	DepthParagraph Depth = "paragraph"
	DepthDetailed  Depth = "detailed"
)

// DepthOrder lists depths from most to least detailed — the order the
// assembler tries when selecting a depth for a token allocation.
var DepthOrder = []Depth{DepthDetailed, DepthParagraph, DepthSentence}

// DefaultDepthTokenLimits are the default per-depth token ceilings.
var DefaultDepthTokenLimits = map[Depth]int{
	DepthSentence:  50,
	DepthParagraph: 200,
	DepthDetailed:  500,
}

// DefaultDepthMinContentChars are the minimum input lengths (in chars)
// required to produce a summary at each depth.
var DefaultDepthMinContentChars = map[Depth]int{
	DepthSentence:  20,
	DepthParagraph: 50,
	DepthDetailed:  100,
}

func (d Depth) IsValid() bool {
	switch d {
	case DepthSentence, DepthParagraph, DepthDetailed:
		return true
	}
	return false
}

// Staleness classifies a context entry's freshness relative to its
// source.
type Staleness string

const (
	StalenessFresh   Staleness = "fresh"
	StalenessStale   Staleness = "stale"
	StalenessUnknown Staleness = "unknown"
)

// ViewMode controls the presentation profile of an assembled context.
type ViewMode string

const (
	// ViewModeAgent ("Ax") is minimal, agent-facing: content only.
	ViewModeAgent ViewMode = "ax"
	// ViewModeUser ("Ux") is user-readable, excludes traces.
	ViewModeUser ViewMode = "ux"
	// ViewModeDeveloper ("Dx") includes trajectory logs/metrics/traces.
	ViewModeDeveloper ViewMode = "dx"
)
