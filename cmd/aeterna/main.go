// Command aeterna is the reference CLI for the context and memory
// platform. It wires internal/config, internal/logging, and a storage
// adapter (in-memory or SQLite) around the CORE packages; it contains
// no business logic of its own, only construction and flag parsing.
//
// Files in this package:
//
//	main.go              - root command, global flags, logger init
//	cmd_assemble.go       - `aeterna assemble`   (Context Assembler, C7)
//	cmd_summarize.go      - `aeterna summarize`  (Summary Generator, C6)
//	cmd_check_drift.go    - `aeterna check-drift` (Governance Engine, C8)
//	cmd_capture_replay.go - `aeterna capture-replay` (Trajectory, C3/C4)
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aeterna/internal/storage"
	"aeterna/internal/storage/memory"
	"aeterna/internal/storage/sqlitestore"
)

var (
	verbose   bool
	apiKey    string
	workspace string
	timeout   time.Duration
	tenantID  string
	userID    string
	dbPath    string
	policyDir string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "aeterna",
	Short: "aeterna - tenant-aware context and memory platform CLI",
	Long: `aeterna drives the context assembler, summary generator, governance
engine, and trajectory capture pipeline from the command line.

It is reference plumbing around the platform's CORE packages: the
storage backend, model backend, and policy set are all supplied
externally; this binary only wires them together.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Model backend API key (or set AETERNA_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "default", "Tenant ID to scope operations to")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "default", "User ID to scope operations to")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "Path to a SQLite database file (default: in-memory storage)")
	rootCmd.PersistentFlags().StringVar(&policyDir, "policy-dir", "", "Directory of governance policy YAML bundles")

	rootCmd.AddCommand(assembleCmd, summarizeCmd, checkDriftCmd, captureReplayCmd)
}

// openBackend resolves the --db-path flag into a concrete storage
// adapter. An empty path selects the in-memory reference adapter.
func openBackend() (storage.Backend, func(), error) {
	if dbPath == "" {
		return memory.New(), func() {}, nil
	}
	s, err := sqlitestore.Open(dbPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return s, func() { _ = s.Close() }, nil
}

func resolveAPIKey() string {
	if apiKey != "" {
		return apiKey
	}
	return os.Getenv("AETERNA_API_KEY")
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
