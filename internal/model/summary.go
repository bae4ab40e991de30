package model

// LayerSummary is an immutable summary of a source at a given depth.
// Updates never mutate a LayerSummary; they create a new record keyed
// by (entry_id, depth).
type LayerSummary struct {
	Depth                  Depth
	Content                string
	TokenCount             uint
	GeneratedAt            int64 // epoch seconds
	SourceHash             string // fingerprint of original content at summary time
	ContentHash            string // optional: hash of the summary text itself
	Personalized           bool
	PersonalizationContext string // optional
}

// Fresh reports whether this summary is Fresh against the given current
// source fingerprint: fresh if the source hash still matches, or if the
// summary's own content hash matches the current fingerprint (the
// summary text itself did not meaningfully drift).
func (s LayerSummary) Fresh(currentFingerprint string) bool {
	if s.SourceHash != "" && s.SourceHash == currentFingerprint {
		return true
	}
	if s.ContentHash != "" && s.ContentHash == currentFingerprint {
		return true
	}
	return false
}

// SummarySource is an entry with summaries at zero or more depths, plus
// optional embedding and full content. Created on first ingestion;
// summaries are added on demand; evicted only by explicit deletion or
// tenant purge.
type SummarySource struct {
	EntryID       string
	Layer         Layer
	Summaries     map[Depth]LayerSummary
	Embedding     []float32 // optional
	FullContent   string    // optional
	FullFingerprint string  // optional: fingerprint of FullContent
	FullContentTokens uint  // optional
}

// BestFitDepth returns the largest depth (by DepthOrder) whose summary
// token count is <= allocation. If none fits, it returns the smallest
// available depth as a best-effort overflow. ok is false if no
// summaries exist at all.
func (s SummarySource) BestFitDepth(allocation int) (LayerSummary, bool) {
	var smallest LayerSummary
	haveSmallest := false

	for _, d := range DepthOrder {
		sum, exists := s.Summaries[d]
		if !exists {
			continue
		}
		if int(sum.TokenCount) <= allocation {
			return sum, true
		}
		if !haveSmallest || sum.TokenCount < smallest.TokenCount {
			smallest = sum
			haveSmallest = true
		}
	}
	if haveSmallest {
		return smallest, true
	}
	return LayerSummary{}, false
}

// ContextEntry is an assembled record selected for a final view.
type ContextEntry struct {
	EntryID        string
	Layer          Layer
	Content        string
	TokenCount     int
	Depth          Depth
	RelevanceScore float64 // in [0,1]
	Embedding      []float32 // optional
	Staleness      Staleness
}

// AssembledContext is the final output of a single Context Assembler
// invocation.
type AssembledContext struct {
	View            string
	Metadata        ContextMetadata
	Entries         []ContextEntry
	TotalTokens     int
	TokenBudget     int
	LayersIncluded  []Layer
	QueryEmbedding  []float32 // optional
	StaleEntryIDs   []string
	HasStaleContent bool
	TimedOut        bool
	Partial         bool
}

// ContextMetadata is attached to an AssembledContext according to the
// requested ViewMode.
type ContextMetadata struct {
	ViewMode        ViewMode
	GeneratedAtUnix int64
	TrajectoryLogs  []string // only populated for ViewModeDeveloper
	Metrics         map[string]float64 // only populated for ViewModeDeveloper
	Traces          []string // only populated for ViewModeDeveloper
}
