// Package budget implements the Budget Tracker (C5, spec.md §4.5):
// atomic daily/hourly/per-layer token counters with advisory reads and
// CAS-free consume-then-reconcile semantics. Grounded on the teacher's
// config.CoreLimits/atomic-counter idiom used throughout its shard
// resource accounting.
package budget

import (
	"sync"
	"sync/atomic"
	"time"

	"aeterna/internal/config"
	"aeterna/internal/model"
)

// Tracker maintains daily, hourly, and per-layer token usage counters.
// All counters are atomic; try_consume is advisory (slight overshoot is
// accepted and reconciled by RecordUsage), matching spec.md §5.
type Tracker struct {
	cfg config.BudgetConfig

	mu          sync.RWMutex // guards period rollover only
	dailyUsed   int64
	hourlyUsed  int64
	dailyStart  time.Time
	hourlyStart time.Time

	layerMu   sync.RWMutex
	layerUsed map[model.Layer]*int64

	now func() time.Time
}

// NewTracker constructs a Tracker from a BudgetConfig.
func NewTracker(cfg config.BudgetConfig) *Tracker {
	now := time.Now()
	return &Tracker{
		cfg:         cfg,
		dailyStart:  now,
		hourlyStart: now,
		layerUsed:   make(map[model.Layer]*int64),
		now:         time.Now,
	}
}

func (t *Tracker) rolloverLocked() {
	now := t.now()
	if now.Sub(t.dailyStart) >= 24*time.Hour {
		atomic.StoreInt64(&t.dailyUsed, 0)
		t.dailyStart = now
	}
	if now.Sub(t.hourlyStart) >= time.Hour {
		atomic.StoreInt64(&t.hourlyUsed, 0)
		t.hourlyStart = now
	}
}

func (t *Tracker) layerCounter(layer model.Layer) *int64 {
	t.layerMu.RLock()
	c, ok := t.layerUsed[layer]
	t.layerMu.RUnlock()
	if ok {
		return c
	}
	t.layerMu.Lock()
	defer t.layerMu.Unlock()
	if c, ok := t.layerUsed[layer]; ok {
		return c
	}
	c = new(int64)
	t.layerUsed[layer] = c
	return c
}

func (t *Tracker) ceilingFor(layer model.Layer) (uint64, bool) {
	if layer == "" {
		return 0, false
	}
	v, ok := t.cfg.LayerCeilings[layer]
	return v, ok
}

func (t *Tracker) statusFor(daily, hourly uint64, layerUsed *uint64, layer model.Layer) model.BudgetStatus {
	if t.cfg.DailyCeiling > 0 && daily >= t.cfg.DailyCeiling {
		return model.BudgetExhausted
	}
	if t.cfg.HourlyCeiling > 0 && hourly >= t.cfg.HourlyCeiling {
		return model.BudgetExhausted
	}
	if layerUsed != nil {
		if ceiling, ok := t.ceilingFor(layer); ok && ceiling > 0 && *layerUsed >= ceiling {
			return model.BudgetExhausted
		}
	}

	warn := t.cfg.WarningThreshold
	if warn <= 0 {
		warn = 0.8
	}
	if t.cfg.DailyCeiling > 0 && float64(daily) >= warn*float64(t.cfg.DailyCeiling) {
		return model.BudgetWarning
	}
	if t.cfg.HourlyCeiling > 0 && float64(hourly) >= warn*float64(t.cfg.HourlyCeiling) {
		return model.BudgetWarning
	}
	if layerUsed != nil {
		if ceiling, ok := t.ceilingFor(layer); ok && ceiling > 0 && float64(*layerUsed) >= warn*float64(ceiling) {
			return model.BudgetWarning
		}
	}
	return model.BudgetAvailable
}

// Check reports current utilization, optionally scoped to a layer.
func (t *Tracker) Check(layer model.Layer) model.BudgetCheck {
	t.mu.Lock()
	t.rolloverLocked()
	t.mu.Unlock()

	daily := uint64(atomic.LoadInt64(&t.dailyUsed))
	hourly := uint64(atomic.LoadInt64(&t.hourlyUsed))

	var layerUsedPtr *uint64
	if layer != "" {
		lu := uint64(atomic.LoadInt64(t.layerCounter(layer)))
		layerUsedPtr = &lu
	}

	percent := 0.0
	if t.cfg.DailyCeiling > 0 {
		percent = float64(daily) / float64(t.cfg.DailyCeiling)
	}

	return model.BudgetCheck{
		Status:      t.statusFor(daily, hourly, layerUsedPtr, layer),
		PercentUsed: percent,
		DailyUsed:   daily,
		HourlyUsed:  hourly,
		LayerUsed:   layerUsedPtr,
	}
}

// TryConsume checks whether consuming estimatedTokens would exceed any
// configured ceiling. When it would not, the estimate is charged to the
// daily, hourly and layer counters at once; any difference from actual
// consumption is reconciled later via RecordUsage. A denied
// status carries exhausted_action semantics at the call site (callers
// treat model.BudgetExhausted as "reject").
func (t *Tracker) TryConsume(estimatedTokens uint64, layer model.Layer) model.BudgetCheck {
	t.mu.Lock()
	t.rolloverLocked()
	t.mu.Unlock()

	projectedDaily := uint64(atomic.LoadInt64(&t.dailyUsed)) + estimatedTokens
	projectedHourly := uint64(atomic.LoadInt64(&t.hourlyUsed)) + estimatedTokens

	var layerPtr *uint64
	if layer != "" {
		lu := uint64(atomic.LoadInt64(t.layerCounter(layer))) + estimatedTokens
		layerPtr = &lu
	}

	status := t.statusFor(projectedDaily, projectedHourly, layerPtr, layer)
	// statusFor treats reaching a ceiling as exhausted; a charge that
	// lands exactly on a ceiling does not exceed it and is allowed.
	exceeds := (t.cfg.DailyCeiling > 0 && projectedDaily > t.cfg.DailyCeiling) ||
		(t.cfg.HourlyCeiling > 0 && projectedHourly > t.cfg.HourlyCeiling)
	if layerPtr != nil {
		if ceiling, ok := t.ceilingFor(layer); ok && ceiling > 0 && *layerPtr > ceiling {
			exceeds = true
		}
	}
	if status == model.BudgetExhausted && !exceeds {
		status = model.BudgetWarning
	}
	if status != model.BudgetExhausted {
		atomic.AddInt64(&t.dailyUsed, int64(estimatedTokens))
		atomic.AddInt64(&t.hourlyUsed, int64(estimatedTokens))
		if layer != "" {
			atomic.AddInt64(t.layerCounter(layer), int64(estimatedTokens))
		}
	}

	percent := 0.0
	if t.cfg.DailyCeiling > 0 {
		percent = float64(projectedDaily) / float64(t.cfg.DailyCeiling)
	}

	return model.BudgetCheck{
		Status:      status,
		PercentUsed: percent,
		DailyUsed:   uint64(atomic.LoadInt64(&t.dailyUsed)),
		HourlyUsed:  uint64(atomic.LoadInt64(&t.hourlyUsed)),
		LayerUsed:   layerPtr,
	}
}

// RecordUsage reconciles actual consumption after the fact, adjusting
// by (actual - estimated) when positive (spec.md §4.6). RecordUsage
// simply adds actualTokens to the counters; since TryConsume already
// charged the estimate, callers reconciling after TryConsume pass the
// delta beyond the estimate, not the raw total, as actualTokens.
func (t *Tracker) RecordUsage(actualTokens int64, layer model.Layer) {
	if actualTokens == 0 {
		return
	}
	atomic.AddInt64(&t.dailyUsed, actualTokens)
	atomic.AddInt64(&t.hourlyUsed, actualTokens)
	if layer != "" {
		atomic.AddInt64(t.layerCounter(layer), actualTokens)
	}
}
