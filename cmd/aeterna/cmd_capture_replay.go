package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aeterna/internal/config"
	"aeterna/internal/metrics"
	"aeterna/internal/model"
	"aeterna/internal/trajectory"
)

var (
	captureSessionID  string
	captureEventsFile string
	captureReplayOnly bool
)

var captureReplayCmd = &cobra.Command{
	Use:   "capture-replay",
	Short: "Capture a batch of trajectory events and replay a session's history (C3/C4)",
	Long: `Feeds the events read from --events through a trajectory Session (ring
buffer, redaction, and batched flush to the configured storage
backend), then loads and prints every event persisted for the session
so far. Pass --replay-only to skip capture and only print history.`,
	RunE: runCaptureReplay,
}

func init() {
	captureReplayCmd.Flags().StringVar(&captureSessionID, "session", "", "Session ID (required)")
	captureReplayCmd.Flags().StringVar(&captureEventsFile, "events", "", "Path to a JSON array of model.TrajectoryEvent to capture")
	captureReplayCmd.Flags().BoolVar(&captureReplayOnly, "replay-only", false, "Skip capture, only replay the session's persisted history")
	captureReplayCmd.MarkFlagRequired("session")
}

func runCaptureReplay(cmd *cobra.Command, args []string) error {
	backend, closeBackend, err := openBackend()
	if err != nil {
		return err
	}
	defer closeBackend()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	if !captureReplayOnly {
		if captureEventsFile == "" {
			return fmt.Errorf("--events is required unless --replay-only is set")
		}
		raw, err := os.ReadFile(captureEventsFile)
		if err != nil {
			return fmt.Errorf("read events file: %w", err)
		}
		var events []model.TrajectoryEvent
		if err := json.Unmarshal(raw, &events); err != nil {
			return fmt.Errorf("parse events file: %w", err)
		}

		session := trajectory.NewSession(ctx, captureSessionID, config.DefaultTrajectoryConfig(), backend, &metrics.TrajectoryMetrics{}, logger)
		for _, ev := range events {
			session.Capture(ev)
		}
		if err := session.Flush(ctx); err != nil {
			session.Stop()
			return fmt.Errorf("flush captured events: %w", err)
		}
		session.Stop()
	}

	history, err := backend.LoadEvents(ctx, captureSessionID)
	if err != nil {
		return fmt.Errorf("load session history: %w", err)
	}

	out, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
