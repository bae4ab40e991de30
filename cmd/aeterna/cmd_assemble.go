package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aeterna/internal/assembler"
	"aeterna/internal/config"
	"aeterna/internal/metrics"
	"aeterna/internal/model"
)

var (
	assembleSourcesFile string
	assembleBudget      int
	assembleViewMode    string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble a bounded context view from a set of summary sources (C7)",
	Long: `Reads a JSON array of model.SummarySource from --sources and runs the
Context Assembler's full relevance-scoring, proportional-allocation,
and early-termination pipeline, printing the resulting view and its
metadata.`,
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().StringVar(&assembleSourcesFile, "sources", "", "Path to a JSON file containing an array of summary sources (required)")
	assembleCmd.Flags().IntVar(&assembleBudget, "budget", 0, "Token budget (0 uses the assembler's default)")
	assembleCmd.Flags().StringVar(&assembleViewMode, "view-mode", string(model.ViewModeUser), "View mode: ax, ux, or dx")
	assembleCmd.MarkFlagRequired("sources")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(assembleSourcesFile)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}
	var sources []model.SummarySource
	if err := json.Unmarshal(raw, &sources); err != nil {
		return fmt.Errorf("parse sources file: %w", err)
	}

	a := assembler.New(config.DefaultAssemblerConfig(), &metrics.AssemblerMetrics{}, logger)
	ctx, cancel := cmdContext(cmd)
	defer cancel()

	result := a.Assemble(ctx, assembler.Request{
		Sources:     sources,
		TokenBudget: assembleBudget,
		ViewMode:    model.ViewMode(assembleViewMode),
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
