package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aeterna/internal/config"
	"aeterna/internal/governance"
	"aeterna/internal/model"
)

var (
	checkDriftProjectID  string
	checkDriftContextFile string
	checkDriftThreshold  float64
	checkDriftLowConfidenceThreshold float64
	checkDriftAutoSuppressInfo bool
)

var checkDriftCmd = &cobra.Command{
	Use:   "check-drift",
	Short: "Evaluate policy drift for a project against a captured context (C8)",
	Long: `Loads the policy bundle from --policy-dir, evaluates every policy
against the evaluation context read from --context, and prints the
resulting drift score, violations, and suppressed violations.

The result is also persisted through the configured storage backend.
With --db-path set, a subsequent run can retrieve it via the Hybrid
Governance Client; the default in-memory backend keeps it only for the
life of this process.`,
	RunE: runCheckDrift,
}

func init() {
	checkDriftCmd.Flags().StringVar(&checkDriftProjectID, "project", "", "Project ID to check (required)")
	checkDriftCmd.Flags().StringVar(&checkDriftContextFile, "context", "", "Path to a JSON object of evaluation context fields (required)")
	checkDriftCmd.Flags().Float64Var(&checkDriftThreshold, "threshold", 0.5, "Drift score threshold recorded in the drift config")
	checkDriftCmd.Flags().Float64Var(&checkDriftLowConfidenceThreshold, "low-confidence-threshold", 0.3, "Score at or above which the result is flagged significant")
	checkDriftCmd.Flags().BoolVar(&checkDriftAutoSuppressInfo, "auto-suppress-info", false, "Move Info-severity violations into suppressed_violations")
	checkDriftCmd.MarkFlagRequired("project")
	checkDriftCmd.MarkFlagRequired("context")
}

func runCheckDrift(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(checkDriftContextFile)
	if err != nil {
		return fmt.Errorf("read context file: %w", err)
	}
	var evalCtx governance.EvaluationContext
	if err := json.Unmarshal(raw, &evalCtx); err != nil {
		return fmt.Errorf("parse context file: %w", err)
	}

	backend, closeBackend, err := openBackend()
	if err != nil {
		return err
	}
	defer closeBackend()

	var policies []model.Policy
	if policyDir != "" {
		policies, err = governance.LoadPolicyDir(policyDir)
		if err != nil {
			return fmt.Errorf("load policy dir: %w", err)
		}
	}

	engine := governance.New(config.DefaultGovernanceConfig(), backend, nil, logger)
	engine.SetPolicies(policies)

	tenant := model.NewTenantContext(tenantID, userID)
	driftCfg := model.DriftConfig{
		ProjectID:              checkDriftProjectID,
		TenantID:               tenantID,
		Threshold:              checkDriftThreshold,
		LowConfidenceThreshold: checkDriftLowConfidenceThreshold,
		AutoSuppressInfo:       checkDriftAutoSuppressInfo,
	}

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	result, err := engine.CheckDrift(ctx, tenant, checkDriftProjectID, evalCtx, driftCfg)
	if err != nil {
		return fmt.Errorf("check drift: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
