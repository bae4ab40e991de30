// Package trajectory implements the Trajectory Ring Buffer (C3) and the
// Async Capture Pipeline (C4) per spec.md §4.3–4.4. Grounded on the
// teacher's concurrency idiom of a mutex-guarded slice with try-lock
// producers (internal/store's mutex-protected maps) and the capture
// pipeline's non-blocking-producer / dedicated-flusher split
// documented in spec.md §5, translated into codeNERD's own session
// package shape (one buffer per session, owned for the session's
// lifetime).
package trajectory

import (
	"encoding/json"
	"fmt"
	"strings"

	"aeterna/internal/config"
	"aeterna/internal/model"
	"aeterna/internal/redact"
)

// RingBuffer is a bounded queue of at most N trajectory events.
// Exclusively owned by one session for the session's lifetime; it is
// not designed for concurrent callers on its own (the owning Session
// in capture.go provides the synchronization — see spec.md §5's
// "mutex protects a FIFO" policy).
type RingBuffer struct {
	capacity int
	events   []model.TrajectoryEvent

	excludedTools  map[string]struct{}
	maxInputChars  int
	maxOutputChars int
	filter         *redact.Filter // nil disables redaction
}

// NewRingBuffer constructs a RingBuffer from a TrajectoryConfig. Pass a
// non-nil filter to enable sensitive-data redaction (spec.md §4.3 step c).
func NewRingBuffer(cfg config.TrajectoryConfig, filter *redact.Filter) *RingBuffer {
	excluded := make(map[string]struct{}, len(cfg.ExcludedTools))
	for _, t := range cfg.ExcludedTools {
		excluded[t] = struct{}{}
	}
	capacity := cfg.QueueSize
	if capacity <= 0 {
		capacity = 100
	}
	rb := &RingBuffer{
		capacity:       capacity,
		excludedTools:  excluded,
		maxInputChars:  cfg.MaxInputChars,
		maxOutputChars: cfg.MaxOutputChars,
	}
	if cfg.RedactSensitive {
		rb.filter = filter
	}
	return rb
}

const truncationSuffix = "... [truncated]"

// Capture applies the spec.md §4.3 pipeline to a single event and
// pushes it into the buffer, popping the oldest event(s) if the
// capacity is exceeded. Returns false if the event was dropped because
// its tool is excluded.
func (rb *RingBuffer) Capture(ev model.TrajectoryEvent) bool {
	if _, excluded := rb.excludedTools[ev.ToolName]; excluded {
		return false
	}

	ev.Input = truncate(ev.Input, rb.maxInputChars)
	ev.Output = truncate(ev.Output, rb.maxOutputChars)

	if rb.filter != nil {
		ev.Input = rb.filter.Filter(ev.Input)
		ev.Output = rb.filter.Filter(ev.Output)
	}

	rb.events = append(rb.events, ev)
	for len(rb.events) > rb.capacity {
		rb.events = rb.events[1:]
	}
	return true
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + truncationSuffix
}

// Events returns the full, ordered list of buffered events.
func (rb *RingBuffer) Events() []model.TrajectoryEvent {
	out := make([]model.TrajectoryEvent, len(rb.events))
	copy(out, rb.events)
	return out
}

// Len reports the current number of buffered events.
func (rb *RingBuffer) Len() int { return len(rb.events) }

// Successful returns only events with Success == true.
func (rb *RingBuffer) Successful() []model.TrajectoryEvent {
	return rb.filterBy(func(e model.TrajectoryEvent) bool { return e.Success })
}

// Failed returns only events with Success == false.
func (rb *RingBuffer) Failed() []model.TrajectoryEvent {
	return rb.filterBy(func(e model.TrajectoryEvent) bool { return !e.Success })
}

func (rb *RingBuffer) filterBy(pred func(model.TrajectoryEvent) bool) []model.TrajectoryEvent {
	var out []model.TrajectoryEvent
	for _, e := range rb.events {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// SerializeForLLM renders the buffer as the LLM-facing text format from
// spec.md §4.3: "Step i: tool\nInput: …\nOutput: …\nSuccess: …\nDuration:
// …ms" joined by "---".
func (rb *RingBuffer) SerializeForLLM() string {
	var parts []string
	for i, e := range rb.events {
		parts = append(parts, fmt.Sprintf(
			"Step %d: %s\nInput: %s\nOutput: %s\nSuccess: %t\nDuration: %dms",
			i+1, e.ToolName, e.Input, e.Output, e.Success, e.DurationMs))
	}
	return strings.Join(parts, "\n---\n")
}

// SerializeJSON renders the buffer as a JSON array matching the stable
// field names in spec.md §6.
func (rb *RingBuffer) SerializeJSON() ([]byte, error) {
	type wireEvent struct {
		ID         string            `json:"id"`
		Timestamp  int64             `json:"timestamp"`
		ToolName   string            `json:"tool_name"`
		Input      string            `json:"input"`
		Output     string            `json:"output"`
		Success    bool              `json:"success"`
		DurationMs int64             `json:"duration_ms"`
		Metadata   map[string]string `json:"metadata,omitempty"`
	}
	wire := make([]wireEvent, len(rb.events))
	for i, e := range rb.events {
		wire[i] = wireEvent{
			ID: e.ID, Timestamp: e.Timestamp, ToolName: e.ToolName,
			Input: e.Input, Output: e.Output, Success: e.Success,
			DurationMs: e.DurationMs, Metadata: e.Metadata,
		}
	}
	return json.Marshal(wire)
}
