package model

// TrajectoryEvent is a single captured tool invocation within a session.
type TrajectoryEvent struct {
	ID         string
	Timestamp  int64
	ToolName   string
	Input      string
	Output     string
	Success    bool
	DurationMs int64
	Metadata   map[string]string // optional

	// Reward and Reasoning are optional side fields consumed by a
	// downstream trainer; the capture pipeline never reads them.
	Reward    *float64
	Reasoning string
}
