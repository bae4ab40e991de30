// Package config holds the platform's per-subsystem configuration
// structs. The CORE accepts already-populated structs; loading from
// files, flags, or environment variables is non-CORE plumbing (spec.md
// §1) and lives outside this package. Structs are yaml-tagged so a
// thin external loader can deserialize them directly, mirroring the
// teacher's internal/config.Config convention.
package config

import "aeterna/internal/model"

// AssemblerConfig tunes the Context Assembler (C7).
type AssemblerConfig struct {
	DefaultTokenBudget      int           `yaml:"default_token_budget"`
	MinRelevanceScore       float64       `yaml:"min_relevance_score"`
	PerSourceTokenFloor     int           `yaml:"per_source_token_floor"`
	CacheTTLSeconds         int           `yaml:"cache_ttl_seconds"`
	CacheEnabled            bool          `yaml:"cache_enabled"`
	EnableEarlyTermination  bool          `yaml:"enable_early_termination"`
	AssemblyTimeoutMs       int64         `yaml:"assembly_timeout_ms"`
	LayerPriority           []model.Layer `yaml:"layer_priority"`
	ParallelScoreThreshold  int           `yaml:"parallel_score_threshold"`
}

func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		DefaultTokenBudget:     4000,
		MinRelevanceScore:      0.0,
		PerSourceTokenFloor:    50,
		CacheTTLSeconds:        300,
		CacheEnabled:           true,
		EnableEarlyTermination: true,
		AssemblyTimeoutMs:      2000,
		LayerPriority:          append([]model.Layer{}, model.DefaultLayerPriority...),
		ParallelScoreThreshold: 32,
	}
}

// GeneratorConfig tunes the Budget-Aware Summary Generator (C6).
type GeneratorConfig struct {
	DepthTokenLimits     map[model.Depth]int       `yaml:"depth_token_limits"`
	DepthMinContentChars map[model.Depth]int       `yaml:"depth_min_content_chars"`
	LayerModelTier       map[model.Layer]model.ModelTier `yaml:"layer_model_tier"`
	ModelTierName        map[model.ModelTier]string     `yaml:"model_tier_name"`
	MaxRetries           int                       `yaml:"max_retries"`
	RetryDelayMs         int64                     `yaml:"retry_delay_ms"`
	LayerPriority        []model.Layer             `yaml:"layer_priority"`
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		DepthTokenLimits:     cloneDepthIntMap(model.DefaultDepthTokenLimits),
		DepthMinContentChars: cloneDepthIntMap(model.DefaultDepthMinContentChars),
		LayerModelTier: map[model.Layer]model.ModelTier{
			model.LayerCompany: model.TierEconomy,
			model.LayerOrg:     model.TierEconomy,
			model.LayerProject: model.TierEconomy,
			model.LayerTeam:    model.TierStandard,
			model.LayerSession: model.TierPremium,
			model.LayerUser:    model.TierPremium,
			model.LayerAgent:   model.TierPremium,
		},
		ModelTierName: map[model.ModelTier]string{
			model.TierEconomy:  "gemini-2.0-flash",
			model.TierStandard: "gemini-2.0-flash",
			model.TierPremium:  "gemini-2.5-pro",
		},
		MaxRetries:    3,
		RetryDelayMs:  250,
		LayerPriority: append([]model.Layer{}, model.LayerCompany, model.LayerOrg, model.LayerTeam, model.LayerProject, model.LayerSession, model.LayerUser, model.LayerAgent),
	}
}

func cloneDepthIntMap(src map[model.Depth]int) map[model.Depth]int {
	dst := make(map[model.Depth]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// BudgetConfig tunes the Budget Tracker (C5).
type BudgetConfig struct {
	DailyCeiling       uint64  `yaml:"daily_ceiling"`
	HourlyCeiling      uint64  `yaml:"hourly_ceiling"`
	LayerCeilings      map[model.Layer]uint64 `yaml:"layer_ceilings"`
	WarningThreshold   float64 `yaml:"warning_threshold"` // fraction of ceiling, e.g. 0.8
}

func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		DailyCeiling:     1_000_000,
		HourlyCeiling:    200_000,
		LayerCeilings:    map[model.Layer]uint64{},
		WarningThreshold: 0.8,
	}
}

// TrajectoryConfig tunes the Ring Buffer (C3) and Async Capture
// Pipeline (C4).
type TrajectoryConfig struct {
	QueueSize        int             `yaml:"queue_size"`
	ExcludedTools    []string        `yaml:"excluded_tools"`
	MaxInputChars    int             `yaml:"max_input_chars"`
	MaxOutputChars   int             `yaml:"max_output_chars"`
	RedactSensitive  bool            `yaml:"redact_sensitive"`
	Mode             model.CaptureMode `yaml:"mode"`
	SampleRate       int             `yaml:"sample_rate"`
	OverheadBudgetMs int64           `yaml:"overhead_budget_ms"`
	BatchSize        int             `yaml:"batch_size"`
	BatchFlushMs     int64           `yaml:"batch_flush_ms"`
}

func DefaultTrajectoryConfig() TrajectoryConfig {
	return TrajectoryConfig{
		QueueSize:        100,
		ExcludedTools:    nil,
		MaxInputChars:    4000,
		MaxOutputChars:   4000,
		RedactSensitive:  true,
		Mode:             model.CaptureAll,
		SampleRate:       1,
		OverheadBudgetMs: 10,
		BatchSize:        20,
		BatchFlushMs:     1000,
	}
}

// GovernanceConfig tunes the Governance Engine (C8).
type GovernanceConfig struct {
	AutoSuppressInfo     bool   `yaml:"auto_suppress_info"`
	SemanticPassEnabled  bool   `yaml:"semantic_pass_enabled"`
	PolicyReloadDebounceMs int64 `yaml:"policy_reload_debounce_ms"`
}

func DefaultGovernanceConfig() GovernanceConfig {
	return GovernanceConfig{
		AutoSuppressInfo:       false,
		SemanticPassEnabled:    false,
		PolicyReloadDebounceMs: 250,
	}
}

// HybridClientConfig tunes the Hybrid Governance Client (C9).
type HybridClientConfig struct {
	CacheTTLSeconds    int `yaml:"cache_ttl_seconds"`
	SyncIntervalSeconds int `yaml:"sync_interval_seconds"`
}

func DefaultHybridClientConfig() HybridClientConfig {
	return HybridClientConfig{
		CacheTTLSeconds:     300,
		SyncIntervalSeconds: 60,
	}
}
