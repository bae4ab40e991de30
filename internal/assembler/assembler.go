// Package assembler implements the Context Assembler (C7, spec.md
// §4.7): relevance scoring, proportional token allocation, depth
// selection, staleness determination, and bounded-budget view
// construction, with an in-memory TTL cache and advisory metrics.
// Grounded on the teacher's internal/context assembly pipeline
// (cache-probe-then-build shape, early-termination budget walk) and
// its mutex-guarded in-memory cache idiom.
package assembler

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aeterna/internal/config"
	"aeterna/internal/fingerprint"
	"aeterna/internal/logging"
	"aeterna/internal/metrics"
	"aeterna/internal/model"
)

// Assembler builds bounded, budget-aware context views from a set of
// summary sources (spec.md §4.7).
type Assembler struct {
	cfg     config.AssemblerConfig
	cache   *cache
	metrics *metrics.AssemblerMetrics
	logger  *zap.Logger
}

// New constructs an Assembler.
func New(cfg config.AssemblerConfig, m *metrics.AssemblerMetrics, logger *zap.Logger) *Assembler {
	if m == nil {
		m = &metrics.AssemblerMetrics{}
	}
	return &Assembler{
		cfg:     cfg,
		cache:   newCache(cfg.CacheTTLSeconds),
		metrics: m,
		logger:  logging.Component(logger, "assembler"),
	}
}

// Request bundles the optional inputs to Assemble.
type Request struct {
	QueryEmbedding    []float32
	Sources           []model.SummarySource
	TokenBudget       int // 0 means use cfg.DefaultTokenBudget
	ViewMode          model.ViewMode
	CurrentContents   map[string]string // entryID -> current raw content, for staleness (optional)
	TrajectoryLogs    []string          // only surfaced for ViewModeDeveloper
	ExtraMetrics      map[string]float64
	ExtraTraces       []string
}

// Assemble implements the full spec.md §4.7 assemble algorithm.
func (a *Assembler) Assemble(ctx context.Context, req Request) model.AssembledContext {
	start := time.Now()

	budget := req.TokenBudget
	if budget <= 0 {
		budget = a.cfg.DefaultTokenBudget
	}
	key := computeCacheKey(req.QueryEmbedding, budget, req.ViewMode)

	// Step 1: cache probe.
	if a.cfg.CacheEnabled {
		if hit, ok := a.cache.get(key); ok {
			hit.TimedOut = false
			hit.Partial = false
			a.metrics.RecordAssembly(time.Since(start).Microseconds(), true, false, false)
			return hit
		}
		// Step 2: opportunistic eviction.
		a.cache.evictExpired()
	}

	result := a.build(req, budget, start)

	if a.cfg.CacheEnabled {
		a.cache.put(key, result)
	}
	a.metrics.RecordAssembly(time.Since(start).Microseconds(), false, result.TimedOut, result.Partial)
	return result
}

type scoredSource struct {
	source model.SummarySource
	score  float64
}

func (a *Assembler) build(req Request, budget int, start time.Time) model.AssembledContext {
	priority := a.cfg.LayerPriority

	// Step 3 + 4: score and filter by min_relevance_score. The
	// assembler's evaluation is otherwise synchronous (spec.md §5), but
	// scoring is pure and side-effect-free, so above a small source
	// count it fans out across a bounded errgroup (SPEC_FULL.md §5.1).
	scores := a.scoreSources(req.Sources, req.QueryEmbedding, priority)
	survivors := make([]scoredSource, 0, len(req.Sources))
	for i, s := range req.Sources {
		if scores[i] < a.cfg.MinRelevanceScore {
			continue
		}
		survivors = append(survivors, scoredSource{source: s, score: scores[i]})
	}

	// Step 5: proportional token allocation.
	allocations := a.allocate(survivors, budget)

	// Step 6 + 7: depth selection and staleness, building entries.
	entries := make([]model.ContextEntry, 0, len(survivors))
	staleIDs := make([]string, 0)
	layersSeen := make(map[model.Layer]struct{})

	for i, ss := range survivors {
		allocation := allocations[i]
		entry, stale, ok := a.selectEntry(ss.source, ss.score, allocation, req.CurrentContents)
		if !ok {
			continue
		}
		entries = append(entries, entry)
		layersSeen[ss.source.Layer] = struct{}{}
		if stale {
			staleIDs = append(staleIDs, entry.EntryID)
		}
	}

	// Step 8: ordering.
	sort.SliceStable(entries, func(i, j int) bool {
		pi := layerPriorityPosition(entries[i].Layer, priority)
		pj := layerPriorityPosition(entries[j].Layer, priority)
		if pi < 0 {
			pi = len(priority)
		}
		if pj < 0 {
			pj = len(priority)
		}
		if pi != pj {
			return pi < pj
		}
		return entries[i].RelevanceScore > entries[j].RelevanceScore
	})

	// Step 9: early termination.
	selected, totalTokens, partial := a.applyEarlyTermination(entries, budget)

	layers := make([]model.Layer, 0, len(layersSeen))
	for l := range layersSeen {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool {
		return layerPriorityPosition(layers[i], priority) < layerPriorityPosition(layers[j], priority)
	})

	// Step 10: view construction.
	view := renderView(selected, budget)
	metadata := buildMetadata(req)

	result := model.AssembledContext{
		View:            view,
		Metadata:        metadata,
		Entries:         selected,
		TotalTokens:     totalTokens,
		TokenBudget:     budget,
		LayersIncluded:  layers,
		QueryEmbedding:  req.QueryEmbedding,
		StaleEntryIDs:   staleIDs,
		HasStaleContent: len(staleIDs) > 0,
		Partial:         partial,
	}

	// Step 11: timing.
	if a.cfg.AssemblyTimeoutMs > 0 && time.Since(start).Milliseconds() >= a.cfg.AssemblyTimeoutMs {
		result.TimedOut = true
	}

	return result
}

// scoreSources computes relevance_score for every source. Below
// ParallelScoreThreshold it scores inline; above it, scoring fans out
// across a bounded number of goroutines via errgroup, since each
// score is an independent, allocation-free computation.
func (a *Assembler) scoreSources(sources []model.SummarySource, query []float32, priority []model.Layer) []float64 {
	scores := make([]float64, len(sources))
	threshold := a.cfg.ParallelScoreThreshold
	if threshold <= 0 || len(sources) < threshold {
		for i, s := range sources {
			scores[i] = relevanceScore(query, s, priority)
		}
		return scores
	}

	var mu sync.Mutex
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(maxParallelism())
	for i, s := range sources {
		i, s := i, s
		g.Go(func() error {
			score := relevanceScore(query, s, priority)
			mu.Lock()
			scores[i] = score
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

func maxParallelism() int {
	if procs := runtime.GOMAXPROCS(0); procs > 1 {
		return procs
	}
	return 1
}

// allocate implements spec.md §4.7 step 5: proportional token
// allocation clamped to a per-source floor.
func (a *Assembler) allocate(survivors []scoredSource, budget int) []int {
	n := len(survivors)
	allocations := make([]int, n)
	if n == 0 {
		return allocations
	}

	var sum float64
	for _, s := range survivors {
		sum += s.score
	}

	floor := a.cfg.PerSourceTokenFloor
	if sum <= 0 {
		even := budget / n
		for i := range allocations {
			allocations[i] = maxInt(even, floor)
		}
		return allocations
	}

	for i, s := range survivors {
		alloc := int(float64(budget) * s.score / sum)
		allocations[i] = maxInt(alloc, floor)
	}
	return allocations
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// selectEntry implements spec.md §4.7 steps 6–7: depth selection and
// staleness determination for a single source.
func (a *Assembler) selectEntry(source model.SummarySource, score float64, allocation int, currentContents map[string]string) (model.ContextEntry, bool, bool) {
	summary, ok := source.BestFitDepth(allocation)
	if !ok {
		if source.FullContent == "" {
			return model.ContextEntry{}, false, false
		}
		staleness := model.StalenessUnknown
		current, hasCurrent := currentContents[source.EntryID]
		if hasCurrent {
			currentFP := fingerprint.FingerprintString(current)
			if source.FullFingerprint == currentFP {
				staleness = model.StalenessFresh
			} else {
				staleness = model.StalenessStale
			}
		}
		entry := model.ContextEntry{
			EntryID:        source.EntryID,
			Layer:          source.Layer,
			Content:        source.FullContent,
			TokenCount:     int(source.FullContentTokens),
			RelevanceScore: score,
			Embedding:      source.Embedding,
			Staleness:      staleness,
		}
		return entry, staleness == model.StalenessStale, true
	}

	staleness := model.StalenessUnknown
	current, hasCurrent := currentContents[source.EntryID]
	if hasCurrent {
		currentFP := fingerprint.FingerprintString(current)
		if summary.Fresh(currentFP) {
			staleness = model.StalenessFresh
		} else {
			staleness = model.StalenessStale
		}
	}

	entry := model.ContextEntry{
		EntryID:        source.EntryID,
		Layer:          source.Layer,
		Content:        summary.Content,
		TokenCount:     int(summary.TokenCount),
		Depth:          summary.Depth,
		RelevanceScore: score,
		Embedding:      source.Embedding,
		Staleness:      staleness,
	}
	return entry, staleness == model.StalenessStale, true
}

// applyEarlyTermination implements spec.md §4.7 step 9. Per the spec's
// literal definition, partial is true whenever early termination is
// enabled and the resulting total falls short of the budget — not only
// when entries were actually dropped (seed scenario 1: two entries
// summing exactly to budget yields partial=false).
func (a *Assembler) applyEarlyTermination(entries []model.ContextEntry, budget int) ([]model.ContextEntry, int, bool) {
	if !a.cfg.EnableEarlyTermination {
		total := 0
		for _, e := range entries {
			total += e.TokenCount
		}
		return entries, total, false
	}

	selected := make([]model.ContextEntry, 0, len(entries))
	total := 0
	for _, e := range entries {
		if total+e.TokenCount > budget && total > 0 {
			break
		}
		selected = append(selected, e)
		total += e.TokenCount
	}
	partial := total < budget
	return selected, total, partial
}

func renderView(entries []model.ContextEntry, budget int) string {
	parts := make([]string, 0, len(entries))
	used := 0
	for _, e := range entries {
		if used+e.TokenCount > budget && used > 0 {
			break
		}
		parts = append(parts, e.Content)
		used += e.TokenCount
	}
	return strings.Join(parts, "\n\n")
}

func buildMetadata(req Request) model.ContextMetadata {
	md := model.ContextMetadata{
		ViewMode:        req.ViewMode,
		GeneratedAtUnix: time.Now().Unix(),
	}
	if req.ViewMode == model.ViewModeDeveloper {
		md.TrajectoryLogs = req.TrajectoryLogs
		md.Metrics = req.ExtraMetrics
		md.Traces = req.ExtraTraces
	}
	return md
}
